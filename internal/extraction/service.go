package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

// AnalyzeRequest is the caller input. Exactly one of ImageURL or ImageBase64
// must be set; ImageBase64 wins when both are present.
type AnalyzeRequest struct {
	ImageURL          string `json:"imageUrl" validate:"omitempty,url"`
	ImageBase64       string `json:"imageBase64"`
	ExtraInstructions string `json:"extraInstructions"`
}

// LineItem is a single extracted invoice line. Pointer fields distinguish
// "absent" from zero.
type LineItem struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	LineTotal   *float64 `json:"lineTotal"`
}

// Extraction is the normalized model output returned to callers.
type Extraction struct {
	RawText        string     `json:"rawText"`
	RawTextHash    *string    `json:"rawTextHash"`
	MerchantCode   *string    `json:"merchantCode"`
	MerchantName   *string    `json:"merchantName"`
	InvoiceNumber  *string    `json:"invoiceNumber"`
	InvoiceDate    *string    `json:"invoiceDate"`
	InvoiceTime    *string    `json:"invoiceTime"`
	Currency       *string    `json:"currency"`
	SubtotalAmount *float64   `json:"subtotalAmount"`
	TaxAmount      *float64   `json:"taxAmount"`
	TotalAmount    *float64   `json:"totalAmount"`
	LineItems      []LineItem `json:"lineItems"`
	Model          string     `json:"model"`
	Location       string     `json:"location"`
}

// InlineData is a decoded image payload handed to the model.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// ModelCaller sends a prompt plus one image to a generative model and returns
// the first text part of the response.
type ModelCaller interface {
	GenerateText(ctx context.Context, prompt string, image InlineData) (string, error)
}

// Service runs the invoice extraction flow.
type Service struct {
	model      ModelCaller
	httpClient *http.Client
	modelName  string
	location   string
	logg       *logger.Logger
}

func NewService(model ModelCaller, modelName, location string, logg *logger.Logger) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("extraction: model caller is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("extraction: logger is required")
	}
	return &Service{
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		modelName:  modelName,
		location:   location,
		logg:       logg,
	}, nil
}

// Analyze resolves the image, calls the model, and normalizes its JSON reply.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Extraction, error) {
	if req.ImageURL == "" && req.ImageBase64 == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provide either imageUrl or imageBase64")
	}

	var (
		inline InlineData
		err    error
	)
	if req.ImageBase64 != "" {
		inline, err = normalizeInlineData(req.ImageBase64, "image/jpeg")
	} else {
		inline, err = s.downloadImage(ctx, req.ImageURL)
	}
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req.ExtraInstructions)
	text, err := s.model.GenerateText(ctx, prompt, inline)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "model call failed")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeModelResponse, "model returned an empty response")
	}

	parsed, ok := safeJSONParse(text)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeModelResponse, "model response was not valid JSON").
			WithDetails(map[string]any{"raw": text})
	}

	return s.normalize(parsed), nil
}

func (s *Service) normalize(parsed map[string]any) *Extraction {
	rawText := ""
	if v := stringOrNil(parsed["raw_text"]); v != nil {
		rawText = *v
	}
	out := &Extraction{
		RawText:        rawText,
		MerchantCode:   stringOrNil(parsed["merchant_code"]),
		MerchantName:   stringOrNil(parsed["merchant_name"]),
		InvoiceNumber:  stringOrNil(parsed["invoice_number"]),
		InvoiceDate:    stringOrNil(parsed["invoice_date"]),
		InvoiceTime:    stringOrNil(parsed["invoice_time"]),
		Currency:       stringOrNil(parsed["currency"]),
		SubtotalAmount: numberOrNil(parsed["subtotal_amount"]),
		TaxAmount:      numberOrNil(parsed["tax_amount"]),
		TotalAmount:    numberOrNil(parsed["total_amount"]),
		LineItems:      normalizeLineItems(parsed["line_items"]),
		Model:          s.modelName,
		Location:       s.location,
	}
	if rawText != "" {
		sum := sha256.Sum256([]byte(rawText))
		h := hex.EncodeToString(sum[:])
		out.RawTextHash = &h
	}
	return out
}

func (s *Service) downloadImage(ctx context.Context, imageURL string) (InlineData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return InlineData{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image url")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return InlineData{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InlineData{}, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("failed to download image. status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return InlineData{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read image body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	mime := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return InlineData{MIMEType: mime, Data: body}, nil
}

var dataURLPattern = regexp.MustCompile(`(?i)^data:(.+);base64,(.+)$`)

func normalizeInlineData(imageBase64, fallbackMime string) (InlineData, error) {
	mime := fallbackMime
	payload := imageBase64
	if m := dataURLPattern.FindStringSubmatch(imageBase64); m != nil {
		mime = m[1]
		payload = m[2]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return InlineData{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "imageBase64 is not valid base64")
	}
	return InlineData{MIMEType: mime, Data: data}, nil
}

// safeJSONParse tolerates the model wrapping its JSON in a markdown code
// fence.
func safeJSONParse(text string) (map[string]any, bool) {
	candidate := strings.TrimSpace(text)
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimPrefix(candidate, "```json")
		candidate = strings.TrimPrefix(candidate, "```")
		candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")
		candidate = strings.TrimSpace(candidate)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func stringOrNil(v any) *string {
	if v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = strings.TrimSpace(fmt.Sprintf("%v", t))
	}
	if s == "" {
		return nil
	}
	return &s
}

// numberOrNil coerces model output to a float, stripping thousands
// separators the model sometimes emits in amounts.
func numberOrNil(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if r == ',' || r == '^' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, t)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func normalizeLineItems(v any) []LineItem {
	rawItems, ok := v.([]any)
	if !ok {
		return []LineItem{}
	}
	items := make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item := LineItem{
			Description: stringOrNil(record["description"]),
			Quantity:    numberOrNil(record["quantity"]),
			UnitPrice:   numberOrNil(record["unit_price"]),
			LineTotal:   numberOrNil(record["line_total"]),
		}
		if item.Description == nil && item.Quantity == nil && item.UnitPrice == nil && item.LineTotal == nil {
			continue
		}
		items = append(items, item)
	}
	return items
}
