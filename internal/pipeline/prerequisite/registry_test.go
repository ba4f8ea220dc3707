package prerequisite

import (
	"context"
	"testing"

	"sales_pipeline_backend/internal/pipeline/domain"
)

type staticCheck struct {
	id  string
	msg string
}

func (c staticCheck) ID() string { return c.id }
func (c staticCheck) Evaluate(context.Context, domain.Lead) (string, error) {
	return c.msg, nil
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.StageContractSigned, staticCheck{id: "b"}).
		Register(domain.StageContractSigned, staticCheck{id: "a"}, staticCheck{id: "c"})

	ids := r.IDsFor(domain.StageContractSigned)
	want := []string{"b", "a", "c"}
	if len(ids) != len(want) {
		t.Fatalf("IDsFor = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDsFor = %v, want %v", ids, want)
		}
	}

	if got := r.ChecksFor(domain.StageLead); len(got) != 0 {
		t.Fatalf("expected no checks for lead, got %d", len(got))
	}
	if got := r.Stages(); len(got) != 1 || got[0] != domain.StageContractSigned {
		t.Fatalf("Stages() = %v", got)
	}
}

func TestRegistryChecksForReturnsCopy(t *testing.T) {
	r := NewRegistry().Register(domain.StageOfferSent, staticCheck{id: "x"})
	checks := r.ChecksFor(domain.StageOfferSent)
	checks[0] = staticCheck{id: "mutated"}

	if r.IDsFor(domain.StageOfferSent)[0] != "x" {
		t.Fatal("registry was mutated through ChecksFor result")
	}
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	for _, id := range []string{CheckOfferSentMessage, CheckContactComplete, CheckPhoneValid} {
		if !c.Has(id) {
			t.Errorf("expected built-in check %q", id)
		}
	}

	if err := c.Register(CheckContactComplete, func(Dependencies) Check { return ContactCompletenessCheck{} }); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	if err := c.Register("always_fails", func(Dependencies) Check { return staticCheck{id: "always_fails", msg: "nope"} }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	check, err := c.Build(domain.StageLead, "always_fails", Dependencies{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.ID() != "always_fails" {
		t.Fatalf("unexpected check %q", check.ID())
	}

	if _, err := c.Build(domain.StageLead, "missing", Dependencies{}); !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError for unknown check, got %v", err)
	}
}
