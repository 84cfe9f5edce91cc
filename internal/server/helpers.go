package server

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode"

	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "otherId" -> "other ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// parsePageRequest reads ?page=&size=&sort=field,dir; sort may repeat.
func parsePageRequest(c *fiber.Ctx) (models.PageRequest, error) {
	var sort []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("sort") {
		sort = append(sort, string(raw))
	}
	return service.NewPageRequest(c.QueryInt("page", 0), c.QueryInt("size", service.DefaultPageSize), sort...)
}

// tweetForm is the body of tweet create and edit requests.
type tweetForm struct {
	Content *string
	Media   *service.MediaUpload
}

func (f tweetForm) content() string {
	if f.Content == nil {
		return ""
	}
	return *f.Content
}

// readTweetForm accepts JSON for text-only requests and multipart forms with
// an optional "media" file otherwise.
func readTweetForm(c *fiber.Ctx) (tweetForm, error) {
	var form tweetForm

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			Content *string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return form, models.NewValidationError("Invalid request body")
		}
		form.Content = body.Content
		return form, nil
	}

	mf, err := c.MultipartForm()
	if err != nil {
		if c.Request().PostArgs().Has("content") {
			content := c.FormValue("content")
			form.Content = &content
		}
		return form, nil
	}

	if values := mf.Value["content"]; len(values) > 0 {
		content := values[0]
		form.Content = &content
	}
	if files := mf.File["media"]; len(files) > 0 {
		upload, err := readUpload(files[0])
		if err != nil {
			return form, err
		}
		form.Media = upload
	}
	return form, nil
}

func readUpload(fh *multipart.FileHeader) (*service.MediaUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	return &service.MediaUpload{Data: data, ContentType: fh.Header.Get(fiber.HeaderContentType)}, nil
}

// codeForStatus names the error code of a status Fiber raised itself.
func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return models.CodeNotFound
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusConflict:
		return models.CodeConflict
	}
	if status >= 400 && status < 500 {
		return models.CodeValidation
	}
	return models.CodeInternalError
}
