package waitlist

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
)

var usPhonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)

// RegisterValidators adds the waitlist tags (us_phone, waitlist_status) to v.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("us_phone", func(fl validator.FieldLevel) bool {
		return usPhonePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	return v.RegisterValidation("waitlist_status", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeStatus(fl.Field().String())
		return ok
	})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}
	return v
}

func trimCreateRequest(req *CreateWaitlistEntryRequest) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Notes = strings.TrimSpace(req.Notes)
}

func trimUpdateRequest(req *UpdateWaitlistEntryRequest) {
	if req.Status != nil {
		s := strings.TrimSpace(*req.Status)
		req.Status = &s
	}
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		req.Notes = &n
	}
}

func validationError(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return apperrors.NewValidationError("Invalid waitlist entry", apperrors.FormatValidationErrors(err, req))
	}
	return nil
}
