package validation

import (
	"strings"
	"testing"

	"social-accounts/internal/admission"
	"social-accounts/internal/locale"
	"social-accounts/internal/user/domain"
)

func defaultRules() Rules {
	locales, err := locale.NewSet([]string{"en", "fr", "pt-BR"})
	if err != nil {
		panic(err)
	}
	return Rules{
		Admission: admission.NewConfig([]string{"mvrht.com"}, nil, false),
		Locales:   locales,
	}
}

func validRegistration() *domain.Registration {
	return &domain.Registration{
		Email:     "foo@example.com",
		AccountID: "acct-1",
		Password:  "abcd1234",
	}
}

func TestValidate_ValidRegistration(t *testing.T) {
	if errs := Default().Validate(validRegistration(), defaultRules()); len(errs) != 0 {
		t.Fatalf("Validate = %v, want no errors", errs)
	}
}

func TestValidate_WithoutAccount(t *testing.T) {
	reg := validRegistration()
	reg.AccountID = ""

	errs := Default().Validate(reg, defaultRules())
	if !errs.On(domain.FieldAccount) {
		t.Fatalf("Validate = %v, want error on account", errs)
	}
	if got := errs.For(domain.FieldAccount); got[0] != ReasonAccountBlank {
		t.Errorf("account reason = %q, want %q", got[0], ReasonAccountBlank)
	}
}

func TestValidate_InvalidLocale(t *testing.T) {
	reg := validRegistration()
	reg.Locale = "toto"

	errs := Default().Validate(reg, defaultRules())
	if !errs.On(domain.FieldLocale) {
		t.Fatalf("Validate = %v, want error on locale", errs)
	}
}

func TestValidate_Locale(t *testing.T) {
	tests := []struct {
		locale  string
		wantErr bool
	}{
		{"", false},
		{"en", false},
		{"pt-br", false},
		{"de", true},
		{"toto", true},
		{"???", true},
	}
	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			reg := validRegistration()
			reg.Locale = tc.locale
			errs := Default().Validate(reg, defaultRules())
			if errs.On(domain.FieldLocale) != tc.wantErr {
				t.Errorf("locale %q: errors = %v, wantErr %v", tc.locale, errs, tc.wantErr)
			}
		})
	}
}

func TestValidate_InvalidEmail(t *testing.T) {
	reg := validRegistration()
	reg.Email = "john@"

	errs := Default().Validate(reg, defaultRules())
	if !errs.On(domain.FieldEmail) {
		t.Fatalf("Validate = %v, want error on email", errs)
	}
	reasons := errs.For(domain.FieldEmail)
	if len(reasons) != 2 {
		t.Fatalf("email reasons = %v, want grammar and admission errors", reasons)
	}
	if !strings.Contains(reasons[0], "valid email") {
		t.Errorf("grammar reason = %q", reasons[0])
	}
	if reasons[1] != ReasonEmailNotAllowed {
		t.Errorf("admission reason = %q", reasons[1])
	}
}

func TestEmailFormat(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"foo@example.com", false},
		{"first.last+tag@mail.example.co.uk", false},
		{"  foo@example.com  ", false},
		{"john@", true},
		{"john", true},
		{"@example.com", true},
		{"john@localhost", true},
		{"john@@example.com", true},
		{"", true},
	}
	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			e := EmailFormat(&domain.Registration{Email: tc.email}, Rules{})
			if (e != nil) != tc.wantErr {
				t.Errorf("EmailFormat(%q) = %v, wantErr %v", tc.email, e, tc.wantErr)
			}
		})
	}
}

func TestEmailFormat_BlankReason(t *testing.T) {
	e := EmailFormat(&domain.Registration{}, Rules{})
	if e == nil {
		t.Fatal("blank email should fail")
	}
	if e.Reason != "email is a required field" {
		t.Errorf("Reason = %q", e.Reason)
	}
}

func TestValidate_Blacklist(t *testing.T) {
	allowed := validRegistration()
	if errs := Default().Validate(allowed, defaultRules()); len(errs) != 0 {
		t.Errorf("non-blacklisted registration: %v", errs)
	}

	blocked := validRegistration()
	blocked.Email = "foo@mvrht.com"
	errs := Default().Validate(blocked, defaultRules())
	if !errs.On(domain.FieldEmail) {
		t.Errorf("blacklisted registration should fail on email, got %v", errs)
	}
}

func TestValidate_Whitelist(t *testing.T) {
	rules := defaultRules()
	rules.Admission = admission.NewConfig([]string{"mvrht.com"}, []string{"mastodon.space"}, false)

	blocked := validRegistration()
	if errs := Default().Validate(blocked, rules); !errs.On(domain.FieldEmail) {
		t.Errorf("non-whitelisted registration should fail on email, got %v", errs)
	}

	allowed := validRegistration()
	allowed.Email = "foo@mastodon.space"
	if errs := Default().Validate(allowed, rules); len(errs) != 0 {
		t.Errorf("whitelisted registration: %v", errs)
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"eight chars", "abcd1234", false},
		{"seventy two bytes", strings.Repeat("a", 72), false},
		{"too short", "abc123", true},
		{"blank", "", true},
		{"too long", strings.Repeat("a", 73), true},
		{"multibyte over limit", strings.Repeat("é", 40), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Password(&domain.Registration{Password: tc.password}, Rules{})
			if (e != nil) != tc.wantErr {
				t.Errorf("Password(%q) = %v, wantErr %v", tc.name, e, tc.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrorsInOrder(t *testing.T) {
	reg := &domain.Registration{Email: "john@", Locale: "toto", Password: "x"}

	errs := Default().Validate(reg, defaultRules())
	want := []string{domain.FieldAccount, domain.FieldLocale, domain.FieldEmail, domain.FieldPassword}
	got := errs.Fields()
	if len(got) != len(want) {
		t.Fatalf("Fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidate_CustomComposition(t *testing.T) {
	v := New(Account)
	reg := &domain.Registration{AccountID: "acct-1", Email: "john@"}
	if errs := v.Validate(reg, defaultRules()); len(errs) != 0 {
		t.Errorf("account-only validator should ignore email, got %v", errs)
	}
}

func TestValidate_NilRegistration(t *testing.T) {
	if errs := Default().Validate(nil, defaultRules()); !errs.On(domain.FieldAccount) {
		t.Errorf("nil registration should fail, got %v", errs)
	}
}

func TestStaticRules(t *testing.T) {
	var src RulesSource = StaticRules(defaultRules())
	if !src.Rules().Locales.Contains("fr") {
		t.Error("StaticRules should return the wrapped rules")
	}
}
