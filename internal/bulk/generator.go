package bulk

import (
	"context"

	"certigen/internal/model"
)

// Issuer produces one rendered certificate for a recipient: render, store the
// document, persist the record. The orchestrator stays decoupled from how any
// of that happens.
type Issuer interface {
	Issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error)
}

// GeneratedItem is the per-recipient outcome of a generation run. Exactly one
// of (Certificate, PDF) or Err is set.
type GeneratedItem struct {
	Recipient   model.Recipient
	Certificate *model.Certificate
	PDF         []byte
	Err         error
}

// Generator renders one document per recipient, strictly in input order and
// one at a time. Sequential processing bounds peak memory and keeps the
// progress index meaningful.
type Generator struct {
	issuer Issuer
}

func NewGenerator(issuer Issuer) *Generator {
	return &Generator{issuer: issuer}
}

// GenerateAll processes every recipient and returns one item per input, in
// input order. A failed render is recorded on its item and never aborts the
// batch. onEvent, when non-nil, is invoked synchronously per step so the
// surrounding transport can surface progress; the generator itself knows
// nothing about streaming.
func (g *Generator) GenerateAll(ctx context.Context, tpl *model.Template, background []byte, recipients []model.Recipient, onEvent func(GenerateEvent)) []GeneratedItem {
	emit := func(ev GenerateEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	items := make([]GeneratedItem, 0, len(recipients))
	total := len(recipients)

	for i, rec := range recipients {
		emit(GenerateEvent{
			Stage:     StageGenerating,
			Current:   i + 1,
			Total:     total,
			Recipient: rec,
		})

		cert, pdf, err := g.issuer.Issue(ctx, tpl, background, rec)
		if err != nil {
			emit(GenerateEvent{
				Stage:     StageError,
				Current:   i + 1,
				Total:     total,
				Recipient: rec,
				Err:       err,
			})
			items = append(items, GeneratedItem{Recipient: rec, Err: err})
			continue
		}

		items = append(items, GeneratedItem{Recipient: rec, Certificate: cert, PDF: pdf})
	}

	return items
}
