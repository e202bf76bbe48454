package cli

import (
	"bytes"
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/iudanet/fieldsync/internal/models"
)

// Conflicts показывает мутации, ожидающие разрешения конфликта, с различиями полей
func (c *Cli) Conflicts(ctx context.Context) error {
	list, err := c.queue.Conflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}
	if list == nil {
		list = []*models.QueuedMutation{}
	}

	return c.render(list, func() {
		if len(list) == 0 {
			c.io.Println("No conflicts.")
			return
		}

		c.io.Printf("=== Conflicts (%d) ===\n", len(list))
		for i, m := range list {
			c.io.Println()
			c.printConflict(i+1, m)
		}
		c.io.Println()
		c.io.Println("Resolve with: fieldsync resolve <mutation> keep-mine|keep-theirs|manual [field=value ...]")
	})
}

func (c *Cli) printConflict(n int, m *models.QueuedMutation) {
	c.io.Printf("%d. %s\n", n, m.EntityKey())
	c.io.Printf("   Mutation:  %s\n", m.IdempotencyKey)

	record := m.Conflict
	if record == nil {
		c.io.Printf("   Operation: %s, base version %d\n", m.Operation, m.BaseVersion)
		return
	}

	c.io.Printf("   Conflict:  %s\n", record.ID)
	c.io.Printf("   Operation: %s, base version %d, server version %d\n",
		record.Operation, record.BaseVersion, record.CurrentServerVersion)
	c.io.Printf("   Detected:  %s\n", c.ago(record.CreatedAt))

	if len(record.PayloadDiff) == 0 {
		return
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "   FIELD\tMINE\tTHEIRS")
	for _, field := range sortedKeys(record.PayloadDiff) {
		diff := record.PayloadDiff[field]
		_, _ = fmt.Fprintf(tw, "   %s\t%s\t%s\n", field, formatValue(diff.Mine), formatValue(diff.Theirs))
	}
	_ = tw.Flush()
	_, _ = c.io.Write(buf.Bytes())
}

// Resolve разрешает конфликт мутации выбранной стратегией.
// keep-mine без полей повторяет исходную мутацию, manual требует поля.
func (c *Cli) Resolve(ctx context.Context, idempotencyKey, choice string, fields []string) error {
	ch := models.Choice(choice)
	if !ch.Valid() {
		return fmt.Errorf("unknown choice %q (keep-mine, keep-theirs, manual)", choice)
	}

	payload, err := ParseFields(fields)
	if err != nil {
		return err
	}
	if ch == models.ChoiceManual && len(payload) == 0 {
		return fmt.Errorf("manual resolution requires field=value arguments")
	}
	if ch == models.ChoiceKeepTheirs && len(payload) > 0 {
		return fmt.Errorf("keep-theirs does not accept fields")
	}

	resp, err := c.queue.Resolve(ctx, idempotencyKey, ch, payload)
	if err != nil {
		return err
	}

	return c.render(resp, func() {
		c.io.Printf("Conflict resolved with %s\n", ch)
		if resp.NewVersion > 0 {
			c.io.Printf("New version: %d\n", resp.NewVersion)
		}
	})
}
