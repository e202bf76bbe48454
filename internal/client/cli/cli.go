// Package cli команды клиента полевого устройства.
// Каждая команда работает с локальным хранилищем; сеть нужна только sync, pack, resolve и watch.
package cli

import (
	"fmt"
	"time"

	"github.com/iudanet/fieldsync/internal/client/iocli"
	"github.com/iudanet/fieldsync/internal/client/storage"
)

// Format формат вывода
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat проверяет формат вывода
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (text, json, yaml)", s)
	}
}

// Deps зависимости команд. Поля, не нужные команде, могут быть nil.
type Deps struct {
	IO           iocli.IO
	Queue        MutationQueue
	Snapshot     Snapshot
	Packs        PackFetcher
	Sessions     storage.SessionStorage
	Server       ServerProbe
	SubscriberID string
	Format       Format
}

type Cli struct {
	io           iocli.IO
	queue        MutationQueue
	snapshot     Snapshot
	packs        PackFetcher
	sessions     storage.SessionStorage
	server       ServerProbe
	now          func() time.Time
	subscriberID string
	format       Format
}

func New(deps Deps) *Cli {
	format := deps.Format
	if format == "" {
		format = FormatText
	}

	return &Cli{
		io:           deps.IO,
		queue:        deps.Queue,
		snapshot:     deps.Snapshot,
		packs:        deps.Packs,
		sessions:     deps.Sessions,
		server:       deps.Server,
		now:          time.Now,
		subscriberID: deps.SubscriberID,
		format:       format,
	}
}
