package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// CallbackResult is the normalized form of an stkCallback payload.
// ResultCode 0 means the customer paid; any other value is a failure,
// in which case the metadata-derived fields (Amount, ReceiptNumber,
// TransactionDate, PhoneNumber) are typically zero-valued.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            float64
	ReceiptNumber     string
	TransactionDate   time.Time
	PhoneNumber       string
}

// Success reports whether the gateway confirmed payment.
func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// metadataItem is one entry of the loosely typed Name/Value metadata
// array. Value can be a number or a string depending on the field.
type metadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ParseCallback decodes a raw gateway callback body into a normalized
// result. The metadata array is read permissively: known names are
// extracted and unknown ones ignored, since the gateway adds fields
// without notice.
func ParseCallback(body []byte) (*CallbackResult, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode callback body: %w", err)
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback missing CheckoutRequestID")
	}

	result := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			result.Amount = asFloat(item.Value)
		case "MpesaReceiptNumber":
			result.ReceiptNumber = asString(item.Value)
		case "TransactionDate":
			result.TransactionDate = asTransactionDate(item.Value)
		case "PhoneNumber":
			result.PhoneNumber = asString(item.Value)
		}
	}

	return result, nil
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Phone numbers and dates arrive as JSON numbers.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asTransactionDate parses the gateway's numeric YYYYMMDDHHmmss stamp.
// A zero time is returned for anything unparseable; failure callbacks
// carry no date at all.
func asTransactionDate(v any) time.Time {
	s := asString(v)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
