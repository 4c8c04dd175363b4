package scriptsdk

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// Version is a version indicator as published by the origin. The document may carry it either
// as a JSON number or as a decimal string; both decode to the same value.
type Version int64

func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = bytes.TrimSpace(data[1 : len(data)-1])
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("version %s: not an integer", data)
	}
	if n < 0 {
		return fmt.Errorf("version %d: negative", n)
	}

	*v = Version(n)
	return nil
}

// DecodeVersions parses a flat filename -> version document
func DecodeVersions(body []byte) (map[string]int64, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	var raw map[string]Version
	if err := jsonUnmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVersionMap, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidVersionMap)
	}

	versions := make(map[string]int64, len(raw))
	for name, v := range raw {
		if name == "" {
			return nil, fmt.Errorf("%w: empty filename", ErrInvalidVersionMap)
		}
		versions[name] = int64(v)
	}
	return versions, nil
}

// GetVersions fetches the origin's current filename -> version document. Filtering of
// reserved or ignored names is the caller's job.
func (s *SDK) GetVersions(ctx context.Context) (map[string]int64, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.config.VersionsPath)

	if err := handleAPIError(resp, err, "get versions"); err != nil {
		return nil, err
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: get versions: read body: %w", ErrRequestFailed, err)
	}

	versions, err := DecodeVersions(body)
	if err != nil {
		return nil, fmt.Errorf("get versions: %w", err)
	}
	return versions, nil
}
