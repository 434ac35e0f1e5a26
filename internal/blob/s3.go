package blob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

type s3Store struct {
	cfg        Config
	endpoint   *url.URL
	httpClient *http.Client
}

func newS3Store(cfg Config) Store {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if cfg.Bucket == "" || endpoint == "" {
		return noopStore{}
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	if strings.Contains(endpoint, "://") {
		if parsed, err := url.Parse(endpoint); err == nil {
			if parsed.Scheme != "" {
				scheme = parsed.Scheme
			}
			endpoint = parsed.Host
		}
	}
	base := &url.URL{Scheme: scheme, Host: endpoint}
	if base.Host == "" {
		return noopStore{}
	}
	return &s3Store{
		cfg:        cfg,
		endpoint:   base,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (s *s3Store) Enabled() bool { return true }

func (s *s3Store) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.applyPrefix(name)
	target := s.objectURL(key)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	// Link-shareable objects: any holder of the returned URL may fetch them.
	request.Header.Set("x-amz-acl", "public-read")
	if err := s.signRequest(request, hashSHA256Hex(data)); err != nil {
		return "", err
	}
	response, err := s.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("upload object %s: %w", key, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("upload object %s: unexpected status %d", key, response.StatusCode)
	}
	return s.publicURL(key), nil
}

func (s *s3Store) applyPrefix(name string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(name), "/")
	prefix := strings.Trim(strings.TrimSpace(s.cfg.Prefix), "/")
	if prefix == "" {
		return trimmed
	}
	if trimmed == "" {
		return prefix
	}
	return prefix + "/" + trimmed
}

func (s *s3Store) objectURL(key string) *url.URL {
	path := "/" + strings.TrimLeft(s.cfg.Bucket, "/")
	if trimmedKey := strings.TrimLeft(key, "/"); trimmedKey != "" {
		path += "/" + trimmedKey
	}
	u := *s.endpoint
	u.Path = path
	return &u
}

// publicURL prefers the configured public endpoint (a CDN or website domain in
// front of the bucket) and falls back to the raw object URL.
func (s *s3Store) publicURL(key string) string {
	base := strings.TrimSpace(s.cfg.PublicEndpoint)
	if base == "" {
		return s.objectURL(key).String()
	}
	trimmedBase := strings.TrimRight(base, "/")
	trimmedKey := strings.TrimLeft(key, "/")
	if trimmedKey == "" {
		return trimmedBase
	}
	return trimmedBase + "/" + trimmedKey
}

func (s *s3Store) signRequest(req *http.Request, payloadHash string) error {
	req.Host = req.URL.Host
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("x-amz-content-sha256", payloadHash)
	accessKey := strings.TrimSpace(s.cfg.AccessKey)
	secretKey := strings.TrimSpace(s.cfg.SecretKey)
	if accessKey == "" || secretKey == "" {
		return nil
	}
	region := strings.TrimSpace(s.cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	req.Header.Set("x-amz-date", amzDate)
	canonicalHeaders, signedHeaders := canonicalizeHeaders(req)
	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL),
		canonicalQuery(req.URL),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
	hash := sha256.Sum256([]byte(canonicalRequest))
	scope := strings.Join([]string{dateStamp, region, "s3", "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hex.EncodeToString(hash[:]),
	}, "\n")
	signingKey := deriveSigningKey(secretKey, dateStamp, region)
	signature := hmacSHA256Hex(signingKey, stringToSign)
	authorization := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKey,
		scope,
		signedHeaders,
		signature,
	)
	req.Header.Set("Authorization", authorization)
	return nil
}

func canonicalizeHeaders(req *http.Request) (string, string) {
	headerMap := make(map[string][]string)
	for key, values := range req.Header {
		lower := strings.ToLower(key)
		if lower == "authorization" {
			continue
		}
		cleaned := make([]string, 0, len(values))
		for _, v := range values {
			cleaned = append(cleaned, strings.TrimSpace(v))
		}
		headerMap[lower] = cleaned
	}
	if _, ok := headerMap["host"]; !ok && req.Host != "" {
		headerMap["host"] = []string{req.Host}
	}
	keys := make([]string, 0, len(headerMap))
	for key := range headerMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var builder strings.Builder
	var signed []string
	for _, key := range keys {
		builder.WriteString(key)
		builder.WriteByte(':')
		builder.WriteString(strings.Join(headerMap[key], ","))
		builder.WriteByte('\n')
		signed = append(signed, key)
	}
	return builder.String(), strings.Join(signed, ";")
}

func canonicalURI(u *url.URL) string {
	if u == nil {
		return "/"
	}
	path := u.EscapedPath()
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

func canonicalQuery(u *url.URL) string {
	if u == nil {
		return ""
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil || len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var builder strings.Builder
	for idx, key := range keys {
		if idx > 0 {
			builder.WriteByte('&')
		}
		sort.Strings(values[key])
		for vIdx, value := range values[key] {
			if vIdx > 0 {
				builder.WriteByte('&')
			}
			builder.WriteString(url.QueryEscape(key))
			builder.WriteByte('=')
			builder.WriteString(url.QueryEscape(value))
		}
	}
	return builder.String()
}

func deriveSigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte("s3"))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key []byte, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hmacSHA256Hex(key []byte, data string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func hashSHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
