package warehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QualityKind tags the placement constraint carried by an item.
type QualityKind string

// Quality kinds.
const (
	QualityNormal    QualityKind = "normal"
	QualityFragile   QualityKind = "fragile"
	QualityOversized QualityKind = "oversized"
)

// DateLayout is the calendar date format used for expiry dates.
const DateLayout = "2006-01-02"

// Quality describes how an item constrains its placement.
// ExpiryDate and MaxRow apply to fragile items, ZonesNeeded to oversized ones.
type Quality struct {
	Kind        QualityKind
	ExpiryDate  time.Time
	MaxRow      int
	ZonesNeeded int
}

// NormalQuality returns a quality without placement constraints.
func NormalQuality() Quality {
	return Quality{Kind: QualityNormal}
}

// FragileQuality returns a quality that bounds the row and expires on the given date.
func FragileQuality(expiry time.Time, maxRow int) Quality {
	return Quality{Kind: QualityFragile, ExpiryDate: dateOf(expiry), MaxRow: maxRow}
}

// OversizedQuality returns a quality spanning zonesNeeded contiguous zones.
func OversizedQuality(zonesNeeded int) Quality {
	return Quality{Kind: QualityOversized, ZonesNeeded: zonesNeeded}
}

// String returns a human-readable form of the quality.
func (q Quality) String() string {
	switch q.Kind {
	case QualityFragile:
		return fmt.Sprintf("Fragile(expiry: %s, max row: %d)", q.ExpiryDate.Format(DateLayout), q.MaxRow)
	case QualityOversized:
		return fmt.Sprintf("Oversized(zones: %d)", q.ZonesNeeded)
	default:
		return "Normal"
	}
}

// Item is a stored good.
type Item struct {
	ID        uint32
	Name      string
	Quantity  uint32
	Quality   Quality
	Timestamp string
}

// NewItem builds and validates an item. An empty timestamp is replaced
// by the current Unix time in seconds.
func NewItem(id uint32, name string, quantity uint32, quality Quality, timestamp string) (Item, error) {
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	}

	item := Item{
		ID:        id,
		Name:      name,
		Quantity:  quantity,
		Quality:   quality,
		Timestamp: timestamp,
	}
	if item.Quality.Kind == QualityFragile {
		item.Quality.ExpiryDate = dateOf(item.Quality.ExpiryDate)
	}

	if err := item.Validate(); err != nil {
		return Item{}, err
	}

	return item, nil
}

// Validate checks that the item's fields and quality data are well formed.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}

	switch i.Quality.Kind {
	case QualityNormal:
	case QualityFragile:
		if i.Quality.ExpiryDate.IsZero() {
			return fmt.Errorf("%w: fragile item requires an expiry date", ErrValidation)
		}
		if i.Quality.MaxRow < 0 {
			return fmt.Errorf("%w: max row cannot be negative", ErrValidation)
		}
	case QualityOversized:
		if i.Quality.ZonesNeeded < 1 {
			return fmt.Errorf("%w: oversized item must need at least one zone", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown quality %q", ErrValidation, i.Quality.Kind)
	}

	return nil
}

// IsFragile reports whether the item carries a fragile quality.
func (i Item) IsFragile() bool {
	return i.Quality.Kind == QualityFragile
}

// ZoneSpan returns the number of contiguous zones the item occupies.
func (i Item) ZoneSpan() int {
	if i.Quality.Kind == QualityOversized && i.Quality.ZonesNeeded > 1 {
		return i.Quality.ZonesNeeded
	}
	return 1
}

// IsExpired reports whether a fragile item's expiry date lies before
// the calendar date of now. Non-fragile items never expire.
func (i Item) IsExpired(now time.Time) bool {
	if !i.IsFragile() {
		return false
	}
	return dateOf(i.Quality.ExpiryDate).Before(dateOf(now))
}

// DaysUntilExpiry returns the whole days between now and the expiry date.
// The result is negative for expired items and false for non-fragile items.
func (i Item) DaysUntilExpiry(now time.Time) (int, bool) {
	if !i.IsFragile() {
		return 0, false
	}
	hours := dateOf(i.Quality.ExpiryDate).Sub(dateOf(now)).Hours()
	return int(hours / 24), true
}

// Details returns a stable human-readable summary of the item.
func (i Item) Details() string {
	return fmt.Sprintf("ID: %d, Name: %s, Quantity: %d, Quality: %s, Timestamp: %s",
		i.ID, i.Name, i.Quantity, i.Quality, i.Timestamp)
}

// dateOf truncates t to midnight UTC of its calendar date.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must use YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}
