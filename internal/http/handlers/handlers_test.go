package handlers

import (
	"net/http"
	"testing"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		service.CodeNotFound:              http.StatusNotFound,
		service.CodeConflict:              http.StatusConflict,
		service.CodeInvalidTransition:     http.StatusConflict,
		service.CodeNoAvailableTechnician: http.StatusUnprocessableEntity,
		service.CodeValidation:            http.StatusBadRequest,
		service.CodeDependencyFailure:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Fatalf("%s: got %d, want %d", code, got, want)
		}
	}
}

func TestValidatorTags(t *testing.T) {
	catalog, err := campus.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	v := NewValidator(catalog)

	ok := ReportRequest{Building: "Gore Hall", Description: "Leak", Trade: "plumbing", Priority: "high"}
	if err := v.Struct(ok); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	bad := ReportRequest{Building: "Hogwarts", Description: "Leak", Trade: "alchemy", Priority: "soon"}
	err = v.Struct(bad)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	details := validationDetails(err)
	want := []string{"building: failed campus_building", "trade: failed trade", "priority: failed priority"}
	if len(details) != len(want) {
		t.Fatalf("got %v, want %v", details, want)
	}
	for i := range want {
		if details[i] != want[i] {
			t.Fatalf("got %v, want %v", details, want)
		}
	}

	tech := TechnicianRequest{Name: "t", Trade: "hvac", AssignedBuildings: []string{"Gore Hall", "Atlantis"}}
	if err := v.Struct(tech); err == nil {
		t.Fatalf("expected unknown assigned building to fail")
	}
}

func TestInboundEmailNeedsSubjectOrBody(t *testing.T) {
	v := NewValidator(nil)
	if err := v.Struct(InboundEmailRequest{From: "a@b.example"}); err == nil {
		t.Fatalf("expected empty email to fail")
	}
	if err := v.Struct(InboundEmailRequest{Subject: "Leak in Gore Hall"}); err != nil {
		t.Fatalf("subject alone should pass, got %v", err)
	}
}
