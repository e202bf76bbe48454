package api

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
	Kind    string `json:"kind,omitempty"`    // категория ошибки: transient, permanent_reject, ...
}

// HealthResponse ответ health check
type HealthResponse struct {
	Status   string `json:"status"`             // ok | degraded
	Database string `json:"database"`           // ok | unavailable
	Version  string `json:"version,omitempty"`  // версия сервера
	Producer string `json:"producer,omitempty"` // producer id процесса
}
