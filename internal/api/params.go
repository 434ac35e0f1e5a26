package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Params is the flat field-name to value mapping every handler consumes,
// regardless of which wire encoding the request arrived in.
type Params map[string]string

// Get returns the value for key, empty string when absent.
func (p Params) Get(key string) string {
	return p[key]
}

const maxMultipartMemory = 32 << 20

var errMissingAction = errors.New("missing action parameter")

// parseRequest flattens the request body into an action discriminator and a
// parameter map. JSON bodies are decoded as a single object whose "action"
// member selects the handler; form-encoded and multipart bodies contribute
// the first value of each field.
func parseRequest(r *http.Request) (string, Params, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	if mediaType == "application/json" {
		return parseJSONRequest(r)
	}
	return parseFormRequest(r, mediaType)
}

func parseJSONRequest(r *http.Request) (string, Params, error) {
	if r.Body == nil {
		return "", nil, errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return "", nil, fmt.Errorf("invalid JSON body: %s", err.Error())
	}

	params := make(Params, len(fields))
	for key, value := range fields {
		params[key] = stringifyField(value)
	}
	action := params["action"]
	if action == "" {
		return "", nil, errMissingAction
	}
	return action, params, nil
}

func parseFormRequest(r *http.Request, mediaType string) (string, Params, error) {
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return "", nil, fmt.Errorf("invalid multipart body: %s", err.Error())
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return "", nil, fmt.Errorf("invalid form body: %s", err.Error())
		}
	}

	params := make(Params, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) == 0 {
			params[key] = ""
			continue
		}
		params[key] = values[0]
	}
	action := params["action"]
	if action == "" {
		return "", nil, errMissingAction
	}
	return action, params, nil
}

// stringifyField normalises decoded JSON scalars to the string values the
// handlers expect. Clients in this request family send strings, but numbers
// and booleans occasionally slip through spreadsheet-style frontends.
func stringifyField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
