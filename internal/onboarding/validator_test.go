package onboarding

import "testing"

func TestValidCINLength(t *testing.T) {
	cases := map[string]bool{
		"1234567":    false,
		"12345678":   true,
		"123456789":  false,
		" 12345678 ": true,
		"":           false,
	}
	for cin, want := range cases {
		if got := ValidCIN(cin); got != want {
			t.Fatalf("ValidCIN(%q) = %v, want %v", cin, got, want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	if !ValidEmail("amira@example.tn") {
		t.Fatal("expected valid email")
	}
	for _, bad := range []string{"amira", "amira@", "amira@example", "a b@example.tn"} {
		if ValidEmail(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestValidPhoneIgnoresSpaces(t *testing.T) {
	if !ValidPhone("+216 20 123 456") {
		t.Fatal("expected spaced phone to be valid")
	}
	if ValidPhone("+216-20") {
		t.Fatal("expected malformed phone to be rejected")
	}
}

func TestAdvanceIsNoOpOnErrors(t *testing.T) {
	seq := NewSequencer(nil)
	d := Draft{ID: "d1", Step: StepPersonalInfo, Form: FormData{FirstName: "Amira", CIN: "1234567"}}

	errs, err := seq.Advance(&d)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if d.Step != StepPersonalInfo {
		t.Fatalf("expected step to stay at 1, got %d", d.Step)
	}
	if errs["cin"] != "Le numéro CIN doit contenir 8 chiffres" {
		t.Fatalf("unexpected cin error %q", errs["cin"])
	}
	if _, ok := errs["firstName"]; ok {
		t.Fatal("first name should be accepted")
	}

	d.Form = validPersonalInfo()
	errs, err = seq.Advance(&d)
	if err != nil || len(errs) != 0 {
		t.Fatalf("expected advance, got %v %v", errs, err)
	}
	if d.Step != StepAccountType {
		t.Fatalf("expected step 2, got %d", d.Step)
	}
}

func TestAdvancePastConfirmation(t *testing.T) {
	d := Draft{Step: StepConfirmation}
	if _, err := NewSequencer(nil).Advance(&d); err != ErrTerminalStep {
		t.Fatalf("expected terminal step error, got %v", err)
	}
}

func TestRetreatStopsAtFirstStep(t *testing.T) {
	seq := NewSequencer(nil)
	d := Draft{Step: StepAccountType}
	if !seq.Retreat(&d) || d.Step != StepPersonalInfo {
		t.Fatalf("expected retreat to step 1, got %d", d.Step)
	}
	if seq.Retreat(&d) {
		t.Fatal("expected no retreat from step 1")
	}
}

func TestOTPValidation(t *testing.T) {
	seq := NewSequencer(nil)
	d := Draft{Step: StepOTP}
	if errs := seq.Validate(StepOTP, d); errs["otpCode"] != "Veuillez demander un code OTP" {
		t.Fatalf("unexpected error %q", errs["otpCode"])
	}

	d.OTPSentAt = fixedNow
	d.IssuedOTP = "123456"
	d.Form.OTPCode = "12345"
	if errs := seq.Validate(StepOTP, d); errs["otpCode"] != "Le code OTP doit contenir 6 chiffres" {
		t.Fatalf("unexpected error %q", errs["otpCode"])
	}
	d.Form.OTPCode = "654321"
	if errs := seq.Validate(StepOTP, d); errs["otpCode"] != "Code OTP incorrect" {
		t.Fatalf("unexpected error %q", errs["otpCode"])
	}
	d.IssuedOTP = ""
	if errs := seq.Validate(StepOTP, d); errs["otpCode"] != "Veuillez demander un code OTP" {
		t.Fatalf("a draft without an issued code must not pass, got %v", errs)
	}
}

func TestMergeKeepsUntouchedFields(t *testing.T) {
	f := validPersonalInfo()
	email := "new@example.tn"
	f.Merge(Patch{Email: &email})
	if f.Email != email {
		t.Fatalf("expected email to be set, got %q", f.Email)
	}
	if f.FirstName != "Amira" || f.CIN != "12345678" {
		t.Fatalf("merge clobbered fields: %+v", f)
	}

	empty := ""
	f.Merge(Patch{FirstName: &empty})
	if f.FirstName != "" {
		t.Fatal("explicit empty value should clear the field")
	}
}
