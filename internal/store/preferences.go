package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"TradeDeck/internal/model"
)

// Preferences is the part of the state that survives restarts.
type Preferences struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"`
	Indicators  []string  `json:"indicators"`
	SidebarOpen bool      `json:"sidebar_open"`
	ChatOpen    bool      `json:"chat_open"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PreferencesOf extracts the persisted fields from s.
func PreferencesOf(s State) *Preferences {
	return &Preferences{
		Symbol:      s.Stocks.Selected.Symbol,
		Timeframe:   s.Timeframe.Selected.Label,
		Indicators:  append([]string(nil), s.Indicators.Selected...),
		SidebarOpen: s.Indicators.SidebarOpen,
		ChatOpen:    s.Chat.Open,
	}
}

// Equal compares the persisted fields, ignoring UpdatedAt.
func (p *Preferences) Equal(o *Preferences) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Symbol == o.Symbol && p.Timeframe == o.Timeframe &&
		slices.Equal(p.Indicators, o.Indicators) &&
		p.SidebarOpen == o.SidebarOpen && p.ChatOpen == o.ChatOpen
}

// Apply returns s with the preferences restored. Entries that no longer exist
// in the catalogs are skipped.
func (p *Preferences) Apply(s State) State {
	if p == nil {
		return s
	}
	if stock, ok := model.FindStock(s.Stocks.Available, p.Symbol); ok {
		s = Reduce(s, SetSelectedStock{Stock: stock})
		s.Stocks.Meta = model.StockMeta{Symbol: stock.Symbol, Name: stock.Name, Price: stock.Price, Change: stock.Change}
	}
	if tf, ok := model.FindTimeframe(s.Timeframe.Available, p.Timeframe); ok {
		s = Reduce(s, SetSelectedTimeframe{Timeframe: tf})
	}
	s = Reduce(s, SetSelectedIndicators{IDs: p.Indicators})
	s.Indicators.SidebarOpen = p.SidebarOpen
	s.Chat.Open = p.ChatOpen
	return s
}

// LoadPreferences reads preferences from a JSON file. Returns nil if the file doesn't exist.
func LoadPreferences(filePath string) (*Preferences, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreferences writes preferences to a JSON file.
func SavePreferences(filePath string, p *Preferences) error {
	p.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}

// PersistOnChange saves preferences to filePath whenever they change.
func PersistOnChange(s *Store, filePath string) (unsubscribe func()) {
	return s.Subscribe(func(prev, next State) {
		before, after := PreferencesOf(prev), PreferencesOf(next)
		if before.Equal(after) {
			return
		}
		if err := SavePreferences(filePath, after); err != nil {
			log.Error().Err(err).Str("path", filePath).Msg("failed to save preferences")
		}
	})
}
