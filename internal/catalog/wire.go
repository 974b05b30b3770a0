package catalog

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

// wireProduct is the catalog service's product record. Numeric fields may be
// JSON numbers or numeric strings.
type wireProduct struct {
	ID               json.RawMessage `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Brand            string          `json:"brand"`
	Price            json.RawMessage `json:"price"`
	StockQuantity    json.RawMessage `json:"stockQuantity"`
	ProductAvailable *bool           `json:"productAvailable"`
	ReleaseDate      string          `json:"releaseDate"`

	ImageName  string          `json:"imageName"`
	ImageType  string          `json:"imageType"`
	ImageData  json.RawMessage `json:"imageData"`
	ImageName2 string          `json:"imageName2"`
	ImageType2 string          `json:"imageType2"`
	ImageData2 json.RawMessage `json:"imageData2"`
}

// imageError reports an image slot that could not be decoded. The product
// itself is still usable.
type imageError struct {
	slot int
	err  error
}

func (e imageError) Error() string {
	return fmt.Sprintf("image %d: %v", e.slot, e.err)
}

func (w wireProduct) toDomain() (domain.Product, []imageError, error) {
	id, err := parseInt(w.ID)
	if err != nil {
		return domain.Product{}, nil, fmt.Errorf("id: %w", err)
	}
	price, err := parseDecimal(w.Price)
	if err != nil {
		return domain.Product{}, nil, fmt.Errorf("product %d price: %w", id, err)
	}
	stock, err := parseInt(w.StockQuantity)
	if err != nil {
		return domain.Product{}, nil, fmt.Errorf("product %d stockQuantity: %w", id, err)
	}

	p := domain.Product{
		ID:            id,
		Name:          w.Name,
		Description:   w.Description,
		Category:      w.Category,
		Brand:         w.Brand,
		Price:         price,
		StockQuantity: int(stock),
		Available:     stock > 0,
		ReleaseDate:   parseDate(w.ReleaseDate),
	}
	if w.ProductAvailable != nil {
		p.Available = *w.ProductAvailable
	}

	var bad []imageError
	slots := []struct {
		name, mime string
		data       json.RawMessage
	}{
		{w.ImageName, w.ImageType, w.ImageData},
		{w.ImageName2, w.ImageType2, w.ImageData2},
	}
	for i, s := range slots {
		img, ok, err := decodeImage(s.name, s.mime, s.data)
		if err != nil {
			bad = append(bad, imageError{slot: i + 1, err: err})
			continue
		}
		if ok {
			p.Images = append(p.Images, img)
		}
	}
	return p, bad, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// unquote returns the text of a JSON number or string.
func unquote(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(trimmed), nil
}

func parseInt(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	s, err := unquote(raw)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// "3.0" from a lenient backend
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		return d.IntPart(), nil
	}
	return n, nil
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if isNull(raw) {
		return decimal.Zero, nil
	}
	s, err := unquote(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative: %s", s)
	}
	return d, nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var errEmptyImage = errors.New("empty image data")

// decodeImage collapses the accepted image encodings into a domain.Image: a
// base64 string, a data: URL, a JSON array of bytes, or {"data": [...]}. ok is
// false when the slot is simply empty.
func decodeImage(name, mime string, raw json.RawMessage) (img domain.Image, ok bool, err error) {
	if isNull(raw) {
		return domain.Image{}, false, nil
	}
	trimmed := bytes.TrimSpace(raw)

	var data []byte
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return domain.Image{}, false, err
		}
		if s == "" {
			return domain.Image{}, false, nil
		}
		var urlMime string
		data, urlMime, err = decodeString(s)
		if err != nil {
			return domain.Image{}, false, err
		}
		if urlMime != "" {
			mime = urlMime
		}
	case '[':
		data, err = decodeByteArray(trimmed)
	case '{':
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return domain.Image{}, false, err
		}
		if isNull(wrapped.Data) {
			return domain.Image{}, false, errEmptyImage
		}
		data, err = decodeByteArray(wrapped.Data)
	default:
		return domain.Image{}, false, fmt.Errorf("unsupported image encoding %q", trimmed[0])
	}
	if err != nil {
		return domain.Image{}, false, err
	}
	if len(data) == 0 {
		return domain.Image{}, false, errEmptyImage
	}

	if mime == "" {
		mime = domain.DefaultImageType
	}
	return domain.Image{Name: name, MimeType: mime, Data: data}, true, nil
}

// decodeString handles base64 and data: URLs. mime is set only for data URLs.
func decodeString(s string) (data []byte, mime string, err error) {
	if rest, found := strings.CutPrefix(s, "data:"); found {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data URL")
		}
		mime, _, _ = strings.Cut(meta, ";")
		if !strings.HasSuffix(meta, ";base64") {
			return []byte(payload), mime, nil
		}
		s = payload
	}
	data, err = base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, mime, nil
}

func decodeByteArray(raw json.RawMessage) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("decode byte array: %w", err)
	}
	data := make([]byte, len(ints))
	for i, n := range ints {
		// Java bytes are signed
		if n < -128 || n > 255 {
			return nil, fmt.Errorf("byte %d out of range: %d", i, n)
		}
		data[i] = byte(n)
	}
	return data, nil
}
