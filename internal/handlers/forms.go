package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20 // 1MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields under the names clients submit them as
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// form is implemented by every request payload so that both url-encoded
// and JSON bodies can be accepted.
type form interface {
	bind(values url.Values) map[string]string
	normalize()
}

var errBadBody = errors.New("malformed request body")

// decodeForm reads a JSON or url-encoded body into dst and validates it.
// Field problems are returned as a map; errBadBody means the body could not
// be parsed at all.
func decodeForm(w http.ResponseWriter, r *http.Request, dst form) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSONContentType(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		if fields := dst.bind(r.PostForm); len(fields) > 0 {
			return fields, nil
		}
	}
	dst.normalize()
	return validationErrors(validate.Struct(dst)), nil
}

func validationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return "Select a valid choice."
	case "eqfield":
		return "The two password fields didn't match."
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

// optionalID parses an optional integer id field; blank means absent.
func optionalID(values url.Values, key string, fields map[string]string) *int64 {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fields[key] = "Select a valid choice."
		return nil
	}
	return &id
}

type taskForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	TagID       *int64 `json:"tag"`
	PriorityID  *int64 `json:"priority"`
	Visibility  string `json:"visibility" validate:"omitempty,oneof=PR PU"`
}

func (f *taskForm) bind(values url.Values) map[string]string {
	fields := map[string]string{}
	f.Title = values.Get("title")
	f.Description = values.Get("description")
	f.TagID = optionalID(values, "tag", fields)
	f.PriorityID = optionalID(values, "priority", fields)
	f.Visibility = values.Get("visibility")
	return fields
}

func (f *taskForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Visibility = strings.ToUpper(strings.TrimSpace(f.Visibility))
}

func (f *taskForm) visibility(fallback models.Visibility) models.Visibility {
	if f.Visibility == "" {
		return fallback
	}
	return models.Visibility(f.Visibility)
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (f *loginForm) bind(values url.Values) map[string]string {
	f.Username = values.Get("username")
	f.Password = values.Get("password")
	return nil
}

func (f *loginForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

type registerForm struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (f *registerForm) bind(values url.Values) map[string]string {
	f.Username = values.Get("username")
	f.Email = values.Get("email")
	f.Password = values.Get("password")
	f.PasswordConfirm = values.Get("password_confirm")
	return nil
}

func (f *registerForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

type tagForm struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required,max=50"`
}

func (f *tagForm) bind(values url.Values) map[string]string {
	fields := map[string]string{}
	if id := optionalID(values, "id", fields); id != nil {
		f.ID = *id
	}
	f.Name = values.Get("name")
	return fields
}

func (f *tagForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
}

// formChoices is what a client needs to render the task form.
type formChoices struct {
	Tags         []*models.Tag      `json:"tags"`
	Priorities   []*models.Priority `json:"priorities"`
	Visibilities []choice           `json:"visibilities"`
}

type choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var visibilityChoices = []choice{
	{Value: string(models.VisibilityPrivate), Label: "Private"},
	{Value: string(models.VisibilityPublic), Label: "Public"},
}
