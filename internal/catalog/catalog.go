// Package catalog loads the customization option catalog and prices designs.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"auto-atelier/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Kind is the category of a catalog option.
type Kind string

const (
	KindCarModel Kind = "car_model"
	KindColor    Kind = "color"
	KindWheel    Kind = "wheel"
	KindInterior Kind = "interior"
)

func parseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCarModel, KindColor, KindWheel, KindInterior:
		return Kind(s), true
	}
	return "", false
}

// Option is one purchasable catalog entry.
type Option struct {
	Kind  Kind
	ID    string
	Name  string
	Price decimal.Decimal
}

// Selection is the set of options a design picks. Nil means not selected.
type Selection struct {
	CarModelID string
	ColorID    *string
	WheelID    *string
	InteriorID *string
}

// Catalog prices designs against the loaded options.
type Catalog interface {
	// Lookup returns the option of the given kind and id.
	Lookup(kind Kind, id string) (Option, bool)

	// Price sums the prices of the selected options. Unknown ids, or ids of
	// the wrong kind, fail with model.ErrOptionNotFound.
	Price(sel Selection) (decimal.Decimal, error)

	// Size returns the number of options loaded.
	Size() int
}

// Loader defines the interface for loading catalog files.
type Loader interface {
	// Load reads a gzipped catalog file and returns its options.
	Load(ctx context.Context, path string) ([]Option, error)
}

type optionKey struct {
	kind Kind
	id   string
}

// mapCatalog implements Catalog with a map keyed by kind and id.
type mapCatalog struct {
	options map[optionKey]Option
}

// New builds a catalog from options. Later duplicates replace earlier ones.
func New(options []Option) Catalog {
	c := &mapCatalog{options: make(map[optionKey]Option, len(options))}
	for _, o := range options {
		c.options[optionKey{kind: o.Kind, id: o.ID}] = o
	}
	return c
}

func (c *mapCatalog) Lookup(kind Kind, id string) (Option, bool) {
	o, ok := c.options[optionKey{kind: kind, id: id}]
	return o, ok
}

func (c *mapCatalog) Size() int {
	return len(c.options)
}

func (c *mapCatalog) Price(sel Selection) (decimal.Decimal, error) {
	car, ok := c.Lookup(KindCarModel, sel.CarModelID)
	if !ok {
		return decimal.Zero, model.ErrOptionNotFound.Wrap(fmt.Errorf("car model %q", sel.CarModelID))
	}
	total := car.Price

	optional := []struct {
		kind Kind
		id   *string
	}{
		{KindColor, sel.ColorID},
		{KindWheel, sel.WheelID},
		{KindInterior, sel.InteriorID},
	}
	for _, o := range optional {
		if o.id == nil {
			continue
		}
		opt, ok := c.Lookup(o.kind, *o.id)
		if !ok {
			return decimal.Zero, model.ErrOptionNotFound.Wrap(fmt.Errorf("%s %q", o.kind, *o.id))
		}
		total = total.Add(opt.Price)
	}

	return total, nil
}

// Load reads every file through loader concurrently and merges the result
// into one catalog. Files are merged in the order given.
func Load(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (Catalog, error) {
	logger = logger.With().Str("component", "catalog").Logger()

	type loadResult struct {
		options []Option
		err     error
	}

	results := make([]loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			options, err := loader.Load(ctx, path)
			results[index] = loadResult{options: options, err: err}
		}(i, path)
	}
	wg.Wait()

	var all []Option
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", paths[i]).
				Msg("failed to load catalog file")
			return nil, fmt.Errorf("failed to load catalog file %s: %w", paths[i], result.err)
		}
		all = append(all, result.options...)
	}

	c := New(all)
	logger.Info().
		Int("file_count", len(paths)).
		Int("options", c.Size()).
		Msg("catalog loaded")

	return c, nil
}
