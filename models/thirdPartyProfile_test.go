package models

import "testing"

func TestThirdPartyProfileBeforeSave(t *testing.T) {
	p := &ThirdPartyProfile{ContactPhone: "(416) 555-0199", ContactEmail: "ops@example.com"}
	if err := p.BeforeSave(nil); err != nil {
		t.Fatalf("valid contact details should save: %v", err)
	}
	if p.ContactPhone != "+14165550199" {
		t.Fatalf("phone should normalize to E.164, got %q", p.ContactPhone)
	}

	bad := &ThirdPartyProfile{ContactEmail: "not-an-email"}
	if err := bad.BeforeSave(nil); err == nil {
		t.Fatal("invalid contact email should be rejected")
	}

	blank := &ThirdPartyProfile{}
	if err := blank.BeforeSave(nil); err != nil {
		t.Fatalf("empty contact details should save: %v", err)
	}
}
