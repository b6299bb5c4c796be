package onboarding

import "errors"

// ErrTerminalStep is returned when advancing past the confirmation step.
var ErrTerminalStep = errors.New("confirmation step has no next step")

// Sequencer moves a draft through the steps one at a time. A step is left
// forward only when its validator reports no errors.
type Sequencer struct {
	validators map[Step]Validator
}

// NewSequencer builds a sequencer over the given validators. Steps without a
// validator always pass.
func NewSequencer(validators map[Step]Validator) *Sequencer {
	if validators == nil {
		validators = DefaultValidators()
	}
	return &Sequencer{validators: validators}
}

// Validate runs the validator of a single step.
func (s *Sequencer) Validate(step Step, d Draft) FieldErrors {
	v, ok := s.validators[step]
	if !ok {
		return FieldErrors{}
	}
	errs := v(d)
	if errs == nil {
		return FieldErrors{}
	}
	return errs
}

// ValidateThrough runs the validators of every step before last and returns
// the first failing step with its errors, or 0 when all pass.
func (s *Sequencer) ValidateThrough(last Step, d Draft) (Step, FieldErrors) {
	for step := StepPersonalInfo; step < last; step++ {
		if errs := s.Validate(step, d); len(errs) > 0 {
			return step, errs
		}
	}
	return 0, nil
}

// Advance moves d to the next step. When the current step is not satisfied
// it returns the errors and leaves d untouched.
func (s *Sequencer) Advance(d *Draft) (FieldErrors, error) {
	if d.Step >= StepConfirmation {
		return nil, ErrTerminalStep
	}
	if errs := s.Validate(d.Step, *d); len(errs) > 0 {
		return errs, nil
	}
	d.Step++
	return nil, nil
}

// Retreat moves d to the previous step. It reports false on the first step.
func (s *Sequencer) Retreat(d *Draft) bool {
	if d.Step <= StepPersonalInfo {
		return false
	}
	d.Step--
	return true
}
