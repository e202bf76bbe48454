package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// PackEntity состояние одной сущности в data pack
type PackEntity struct {
	UpdatedAt  time.Time      `json:"updated_at"`
	Fields     map[string]any `json:"fields"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Version    int64          `json:"version"`
	Deleted    bool           `json:"deleted"`
}

// PackResponse снимок сущностей для пересева клиента.
// HeadSequenceID фиксируется до чтения сущностей: клиент продолжает поток с него
// и получит все изменения, сделанные во время выгрузки.
type PackResponse struct {
	EntityType     string       `json:"entity_type"`
	Checksum       string       `json:"checksum"` // hex BLAKE2b-256 от PackChecksum
	Entities       []PackEntity `json:"entities"`
	HeadSequenceID int64        `json:"head_sequence_id"`
}

// PackChecksum вычисляет BLAKE2b-256 от JSON списка сущностей.
// encoding/json сортирует ключи map, поэтому представление детерминировано.
func PackChecksum(entities []PackEntity) (string, error) {
	if entities == nil {
		entities = []PackEntity{}
	}

	data, err := json.Marshal(entities)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pack entities: %w", err)
	}

	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
