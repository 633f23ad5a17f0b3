package storage

import "testing"

func TestKeyLayout(t *testing.T) {
	if got := MarkerKey("crm"); got != "crm-Markers" {
		t.Errorf("MarkerKey = %q", got)
	}
	if got := StatusKey("crm"); got != "crm-init-status" {
		t.Errorf("StatusKey = %q", got)
	}
	if got := FieldKey("crm", "countries"); got != "crm-countries" {
		t.Errorf("FieldKey = %q", got)
	}
}
