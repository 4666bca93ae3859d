package admin

import (
	"strings"
	"testing"
)

func TestRecordSchemaValidate(t *testing.T) {
	s, err := NewRecordSchema()
	if err != nil {
		t.Fatalf("new record schema: %v", err)
	}

	valid := []string{
		`{"issuee":"alice"}`,
		`{"issuee":"alice","isActive":false}`,
		`{"issuee":"alice","isActive":true,"expiryDate":"2030-01-01T00:00:00Z"}`,
	}
	for _, body := range valid {
		if err := s.Validate([]byte(body)); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", body, err)
		}
	}

	invalid := []string{
		`{}`,
		`{"issuee":""}`,
		`{"issuee":42}`,
		`{"issuee":"alice","extra":1}`,
		`{"issuee":"alice","expiryDate":"not-a-date"}`,
		`not json`,
	}
	for _, body := range invalid {
		if err := s.Validate([]byte(body)); err == nil {
			t.Errorf("Validate(%s) = nil, want error", body)
		}
	}
}

func TestRecordSchemaDocument(t *testing.T) {
	s, err := NewRecordSchema()
	if err != nil {
		t.Fatalf("new record schema: %v", err)
	}
	doc := string(s.JSON())
	for _, want := range []string{`"required":["issuee"]`, `"default":true`, `"format":"date-time"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("schema %s missing %s", doc, want)
		}
	}
}
