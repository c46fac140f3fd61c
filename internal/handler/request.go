package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
)

// Request body limits.
const (
	maxJSONBody = 1 << 20
	// Multipart parts beyond this stay on disk until read.
	multipartMemory = 32 << 20
	// Room for the other form fields and part headers around the file.
	multipartOverhead = 1 << 20
)

// Errors for bodies cut off before the file could be measured.
var (
	quotaTooLarge  = apperror.QuotaExceeded("Storage quota exceeded. Upload would exceed the 1.00 GB limit.")
	publicTooLarge = apperror.ValidationFailed("file", "File size exceeds maximum allowed size (10MB).")
)

// validate checks request DTOs against their `validate` struct tags. It
// reports fields by their JSON name so messages match what the client sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "Request body is required.")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body.")
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("body", "Invalid request.")
	}
	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required.", fe.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must have at least %s item(s).", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' is invalid.", fe.Field())
	}
}

// pageRequest reads ?page= and ?page_size=. Absent values stay zero so the
// service applies its own default; a supplied zero is out of range.
func pageRequest(r *http.Request) (model.PageRequest, error) {
	page, ok, err := queryInt(r, "page")
	if err != nil {
		return model.PageRequest{}, err
	}
	if ok && page < 1 {
		return model.PageRequest{}, apperror.ValidationFailed("page", "page must be greater than or equal to 1")
	}
	size, ok, err := queryInt(r, "page_size")
	if err != nil {
		return model.PageRequest{}, err
	}
	if ok && size < 1 {
		return model.PageRequest{}, apperror.ValidationFailed("page_size",
			fmt.Sprintf("page_size must be between 1 and %d", model.MaxPageSize))
	}
	return model.PageRequest{Page: page, PageSize: size}, nil
}

// queryInt parses an integer query parameter. ok is false when the
// parameter is absent or empty.
func queryInt(r *http.Request, name string) (n int, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperror.ValidationFailed(name, fmt.Sprintf("%s must be an integer", name))
	}
	return n, true, nil
}

// readUpload buffers the multipart "file" part. At most limit+1 bytes are
// read, so a caller comparing len(Data) > limit can tell "too large" apart
// from "exactly at the limit". Bodies far beyond the limit are cut off by
// MaxBytesReader and reported with tooLarge.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64, tooLarge error) (model.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.Upload{}, tooLarge
		}
		return model.Upload{}, apperror.ValidationFailed("file", "Expected a multipart form upload.")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return model.Upload{}, apperror.ValidationFailed("file", "Field 'file' is required.")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return model.Upload{}, fmt.Errorf("reading upload: %w", err)
	}
	return model.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// formValue returns a multipart/urlencoded field, or nil when it is absent.
func formValue(r *http.Request, name string) *string {
	if r.MultipartForm != nil {
		if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}
	if vs, ok := r.PostForm[name]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}
