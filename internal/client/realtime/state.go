package realtime

// State состояние подписчика
type State int

const (
	// StateConnecting идет установка соединения
	StateConnecting State = iota
	// StateOpen поток открыт, конверты принимаются
	StateOpen
	// StateError соединение потеряно, ожидание перед переподключением
	StateError
	// StateStopped подписчик остановлен явно
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
