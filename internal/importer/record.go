package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"commentboard/internal/models"
)

var requiredFields = []string{"id", "author", "text", "date", "likes", "image"}

// rawRecord is one entry of the "comments" array, kept undecoded so that
// existing records can be skipped without looking at anything but the id.
type rawRecord map[string]json.RawMessage

// commentsFile is the import document: {"comments": [...]}.
type commentsFile struct {
	Comments *[]rawRecord `json:"comments"`
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// id accepts a JSON integer or a string holding one.
func (r rawRecord) id() (uint, error) {
	raw, ok := r["id"]
	if !ok {
		return 0, errors.New(`missing field "id"`)
	}
	text := string(bytes.TrimSpace(raw))
	if len(text) > 0 && text[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("invalid id %s: %w", raw, err)
		}
	}
	n, err := strconv.ParseUint(text, 10, 63)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %s: must be a positive integer", raw)
	}
	return uint(n), nil
}

func (r rawRecord) stringField(name string) (string, error) {
	var s string
	if isNull(r[name]) {
		return "", fmt.Errorf("field %q must not be null", name)
	}
	if err := json.Unmarshal(r[name], &s); err != nil {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return s, nil
}

// comment decodes a record that passed the existence check.
func (r rawRecord) comment(id uint) (*models.Comment, error) {
	for _, name := range requiredFields {
		if _, ok := r[name]; !ok {
			return nil, fmt.Errorf("missing field %q", name)
		}
	}

	author, err := r.stringField("author")
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(author) > models.MaxAuthorLen {
		return nil, fmt.Errorf("field \"author\" exceeds %d characters", models.MaxAuthorLen)
	}

	text, err := r.stringField("text")
	if err != nil {
		return nil, err
	}

	rawDate, err := r.stringField("date")
	if err != nil {
		return nil, err
	}
	date, err := models.ParseCommentDate(rawDate)
	if err != nil {
		return nil, err
	}

	var likes int
	if err := json.Unmarshal(r["likes"], &likes); err != nil || isNull(r["likes"]) {
		return nil, errors.New(`field "likes" must be an integer`)
	}
	if likes < 0 {
		return nil, errors.New(`field "likes" must be zero or greater`)
	}

	var image *string
	if !isNull(r["image"]) {
		s, err := r.stringField("image")
		if err != nil {
			return nil, err
		}
		image = &s
	}

	return &models.Comment{
		ID:     id,
		Author: author,
		Text:   text,
		Date:   date,
		Likes:  likes,
		Image:  image,
	}, nil
}
