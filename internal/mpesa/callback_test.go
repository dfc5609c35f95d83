package mpesa

import (
	"testing"
	"time"
)

const successCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 2000.00},
					{"Name": "MpesaReceiptNumber", "Value": "QAX123XYZ9"},
					{"Name": "Balance"},
					{"Name": "TransactionDate", "Value": 20240830121530},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

const failureCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user"
		}
	}
}`

func TestParseCallback_Success(t *testing.T) {
	t.Parallel()

	result, err := ParseCallback([]byte(successCallback))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success() {
		t.Error("expected success result")
	}
	if result.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Errorf("unexpected checkout request id: %q", result.CheckoutRequestID)
	}
	if result.MerchantRequestID != "29115-34620561-1" {
		t.Errorf("unexpected merchant request id: %q", result.MerchantRequestID)
	}
	if result.Amount != 2000 {
		t.Errorf("expected amount 2000, got %v", result.Amount)
	}
	if result.ReceiptNumber != "QAX123XYZ9" {
		t.Errorf("unexpected receipt number: %q", result.ReceiptNumber)
	}
	if result.PhoneNumber != "254712345678" {
		t.Errorf("unexpected phone number: %q", result.PhoneNumber)
	}

	wantDate := time.Date(2024, 8, 30, 12, 15, 30, 0, time.UTC)
	if !result.TransactionDate.Equal(wantDate) {
		t.Errorf("expected transaction date %v, got %v", wantDate, result.TransactionDate)
	}
}

func TestParseCallback_Failure(t *testing.T) {
	t.Parallel()

	result, err := ParseCallback([]byte(failureCallback))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Success() {
		t.Error("expected failure result")
	}
	if result.ResultCode != 1032 {
		t.Errorf("expected result code 1032, got %d", result.ResultCode)
	}
	if result.ResultDesc != "Request cancelled by user" {
		t.Errorf("unexpected result desc: %q", result.ResultDesc)
	}

	// Failure callbacks carry no metadata; optional fields stay zero.
	if result.Amount != 0 || result.ReceiptNumber != "" || result.PhoneNumber != "" {
		t.Errorf("expected zero metadata fields, got %+v", result)
	}
	if !result.TransactionDate.IsZero() {
		t.Errorf("expected zero transaction date, got %v", result.TransactionDate)
	}
}

func TestParseCallback_IgnoresUnknownItems(t *testing.T) {
	t.Parallel()

	body := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "SomeNewField", "Value": "whatever"},
						{"Name": "Amount", "Value": 150},
						{"Name": "AnotherField", "Value": {"nested": true}}
					]
				}
			}
		}
	}`

	result, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Amount != 150 {
		t.Errorf("expected amount 150, got %v", result.Amount)
	}
}

func TestParseCallback_StringValues(t *testing.T) {
	t.Parallel()

	// Some gateway environments send metadata values as strings.
	body := `{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": "2000"},
						{"Name": "PhoneNumber", "Value": "254712345678"}
					]
				}
			}
		}
	}`

	result, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Amount != 2000 {
		t.Errorf("expected amount 2000, got %v", result.Amount)
	}
	if result.PhoneNumber != "254712345678" {
		t.Errorf("unexpected phone number: %q", result.PhoneNumber)
	}
}

func TestParseCallback_MalformedBody(t *testing.T) {
	t.Parallel()

	if _, err := ParseCallback([]byte("not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}

func TestParseCallback_MissingCheckoutRequestID(t *testing.T) {
	t.Parallel()

	body := `{"Body": {"stkCallback": {"ResultCode": 0, "ResultDesc": "ok"}}}`
	if _, err := ParseCallback([]byte(body)); err == nil {
		t.Error("expected error when CheckoutRequestID is absent")
	}
}
