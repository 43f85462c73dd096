package hamper

import (
	"strings"

	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

// Config describes a customizable hamper product.
type Config struct {
	Flavors           []string
	MinPackets        int
	PacketPricePaise  int64
	PacketWeightGrams int
}

func (c Config) validate() error {
	if len(c.Flavors) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "hamper has no flavors configured")
	}
	if c.MinPackets <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "hamper minimum packets must be positive")
	}
	if c.PacketPricePaise <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "hamper packet price must be positive")
	}
	seen := map[string]bool{}
	for _, flavor := range c.Flavors {
		key := strings.ToLower(strings.TrimSpace(flavor))
		if key == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "hamper flavor names must be non-empty")
		}
		if seen[key] {
			return pkgerrors.New(pkgerrors.CodeValidation, "hamper flavor names must be unique")
		}
		seen[key] = true
	}
	return nil
}

// Selection tracks per-flavor packet counts for one hamper being customized.
// Flavor order follows the config; counts never go negative and the total
// never drops below the configured minimum.
type Selection struct {
	cfg    Config
	counts map[string]int
}

// NewSelection starts a selection with every flavor at zero and the entire
// minimum assigned to the first flavor, so the hamper opens already valid.
func NewSelection(cfg Config) (*Selection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(cfg.Flavors))
	for _, flavor := range cfg.Flavors {
		counts[flavor] = 0
	}
	counts[cfg.Flavors[0]] = cfg.MinPackets

	return &Selection{cfg: cfg, counts: counts}, nil
}

// Restore rebuilds a selection from previously returned counts, enforcing the
// same invariants as a fresh one.
func Restore(cfg Config, counts map[string]int) (*Selection, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	restored := make(map[string]int, len(cfg.Flavors))
	total := 0
	for _, flavor := range cfg.Flavors {
		count := counts[flavor]
		if count < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "packet counts cannot be negative")
		}
		restored[flavor] = count
		total += count
	}
	for flavor := range counts {
		if _, known := restored[flavor]; !known {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown flavor "+flavor)
		}
	}
	if total < cfg.MinPackets {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hamper is below the minimum packet count")
	}

	return &Selection{cfg: cfg, counts: restored}, nil
}

// Counts returns the selection in config flavor order, including zero counts.
func (s *Selection) Counts() map[string]int {
	out := make(map[string]int, len(s.cfg.Flavors))
	for _, flavor := range s.cfg.Flavors {
		out[flavor] = s.counts[flavor]
	}
	return out
}

// TotalPackets is the sum of all flavor counts.
func (s *Selection) TotalPackets() int {
	total := 0
	for _, count := range s.counts {
		total += count
	}
	return total
}

// UpdateCount applies a delta to one flavor. The new count is floored at
// zero. A change that would drop the total below the minimum is refused
// outright rather than clamped.
func (s *Selection) UpdateCount(flavor string, delta int) error {
	old, known := s.counts[flavor]
	if !known {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown flavor "+flavor)
	}

	next := old + delta
	if next < 0 {
		next = 0
	}
	if s.TotalPackets()-old+next < s.cfg.MinPackets {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "hamper cannot drop below the minimum packet count").
			WithDetails(map[string]any{"min_packets": s.cfg.MinPackets})
	}

	s.counts[flavor] = next
	return nil
}

// Price is packet price times total packets.
func (s *Selection) Price() int64 {
	return s.cfg.PacketPricePaise * int64(s.TotalPackets())
}

// TotalWeightGrams is packet weight times total packets.
func (s *Selection) TotalWeightGrams() int {
	return s.cfg.PacketWeightGrams * s.TotalPackets()
}

// Commit finalizes the selection into line-item contents. Only flavors with
// a positive count appear in the output.
func (s *Selection) Commit() (types.HamperContents, error) {
	if s.TotalPackets() < s.cfg.MinPackets {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hamper is below the minimum packet count").
			WithDetails(map[string]any{"min_packets": s.cfg.MinPackets})
	}

	contents := types.HamperContents{}
	for _, flavor := range s.cfg.Flavors {
		if count := s.counts[flavor]; count > 0 {
			contents = append(contents, types.HamperContent{Flavor: flavor, Count: count})
		}
	}
	return contents, nil
}
