package source

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/job-alerts/internal/textnorm"
)

//go:embed samples/offres_sample.json
var defaultSample []byte

// Simulated serves offers from a sample file and never touches the network.
type Simulated struct {
	offers []Offer
	log    *zap.SugaredLogger
}

var _ Client = (*Simulated)(nil)

// NewSimulated loads offers from path, or the built-in sample when path is empty.
func NewSimulated(path string, log *zap.SugaredLogger) (*Simulated, error) {
	data := defaultSample
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample file: %w", err)
		}
		data = b
	}
	offers, err := DecodeOffers(data)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Simulated{offers: offers, log: log.With("component", "simulated-source")}, nil
}

// NewSimulatedFromOffers serves the given offers.
func NewSimulatedFromOffers(offers []Offer) *Simulated {
	return &Simulated{offers: offers, log: zap.NewNop().Sugar()}
}

// DecodeOffers accepts either a bare JSON array or a search response object.
func DecodeOffers(data []byte) ([]Offer, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var offers []Offer
		if err := json.Unmarshal(data, &offers); err != nil {
			return nil, fmt.Errorf("failed to decode offers: %w", err)
		}
		return offers, nil
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return resp.Resultats, nil
}

// SearchPage returns the offers matching any keyword (all when none are given)
// and the department, paged in file order.
func (s *Simulated) SearchPage(_ context.Context, q Query, page, pageSize int) ([]Offer, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var matched []Offer
	for _, o := range s.offers {
		if q.Department != "" && DepartmentCode(o.LieuTravail) != q.Department {
			continue
		}
		if !matchesKeywords(o, q.Keywords) {
			continue
		}
		matched = append(matched, o)
	}

	start := page * pageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := min(start+pageSize, len(matched))

	s.log.Debugw("Simulated page served", "query", q.String(), "page", page, "count", end-start)
	return matched[start:end], nil
}

// Detail returns the offer with the given ID.
func (s *Simulated) Detail(_ context.Context, id string) (Offer, error) {
	for _, o := range s.offers {
		if o.ID == id {
			return o, nil
		}
	}
	return Offer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func matchesKeywords(o Offer, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := textnorm.Fold(o.Intitule + "\n" + textnorm.StripHTML(o.Description))
	for _, k := range keywords {
		k = textnorm.Fold(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
