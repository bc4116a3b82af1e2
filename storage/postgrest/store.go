// Package postgrest implements the remote store on a PostgREST endpoint (Supabase
// exposes one at https://<project>.supabase.co/rest/v1).
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/store"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type Store struct {
	client  *rest.Client
	baseURL string
	apiKey  string
	schema  string
	timeout time.Duration
}

var _ tablesync.Store = (*Store)(nil)

// NewStore returns a store talking to conf.URL. timeout bounds every request (0 means no
// bound beyond the caller's context); a request that runs out of it fails with
// context.DeadlineExceeded rather than a connection error.
func NewStore(conf core.PostgRESTConfig, timeout time.Duration) (*Store, error) {
	if conf.URL == "" {
		return nil, errors.New("postgrest: URL is required")
	}
	return &Store{
		client:  &rest.Client{HTTPClient: &http.Client{}},
		baseURL: strings.TrimSuffix(conf.URL, "/"),
		apiKey:  conf.APIKey,
		schema:  conf.Schema,
		timeout: timeout,
	}, nil
}

// apiError is the error body PostgREST answers with.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *Store) request(method rest.Method, table string) rest.Request {
	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if s.apiKey != "" {
		headers["apikey"] = s.apiKey
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	if s.schema != "" {
		if method == rest.Get {
			headers["Accept-Profile"] = s.schema
		} else {
			headers["Content-Profile"] = s.schema
		}
	}
	return rest.Request{
		Method:      method,
		BaseURL:     s.baseURL + "/" + table,
		Headers:     headers,
		QueryParams: map[string]string{},
	}
}

func (s *Store) send(ctx context.Context, table string, req rest.Request) (*rest.Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "requesting %s", table)
		}
		return nil, store.NewConnectionError(err, table)
	}
	if res.StatusCode < http.StatusBadRequest {
		return res, nil
	}

	switch res.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, store.NewConnectionError(errors.Errorf("status %d", res.StatusCode), table)
	}
	var apiErr apiError
	if err := json.Unmarshal([]byte(res.Body), &apiErr); err != nil || apiErr.Message == "" {
		return nil, &store.QueryError{Table: table, Code: fmt.Sprint(res.StatusCode), Message: strings.TrimSpace(res.Body)}
	}
	msg := apiErr.Message
	if apiErr.Details != "" {
		msg += " (" + apiErr.Details + ")"
	}
	return nil, &store.QueryError{Table: table, Code: apiErr.Code, Message: msg}
}

func (s *Store) Select(ctx context.Context, table string, ordering []core.DBOrdering) ([]core.Record, error) {
	req := s.request(rest.Get, table)
	req.QueryParams["select"] = "*"
	if len(ordering) > 0 {
		parts := make([]string, len(ordering))
		for i, ord := range ordering {
			dir := "desc"
			if ord.Ascending {
				dir = "asc"
			}
			parts[i] = ord.Field + "." + dir
		}
		req.QueryParams["order"] = strings.Join(parts, ",")
	}

	res, err := s.send(ctx, table, req)
	if err != nil {
		return nil, err
	}
	recs := make([]core.Record, 0)
	if err := json.Unmarshal([]byte(res.Body), &recs); err != nil {
		return nil, &store.QueryError{Table: table, Message: "decoding rows: " + err.Error()}
	}
	return recs, nil
}

func (s *Store) Insert(ctx context.Context, table string, rec core.Record) error {
	body, err := json.Marshal([]core.Record{rec})
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	req := s.request(rest.Post, table)
	req.Headers["Prefer"] = "return=minimal"
	req.Body = body

	_, err = s.send(ctx, table, req)
	return err
}

func (s *Store) Update(ctx context.Context, table, pkField string, pkValue interface{}, rec core.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	req := s.request(rest.Patch, table)
	req.Headers["Prefer"] = "return=representation"
	req.QueryParams[pkField] = "eq." + fmt.Sprint(pkValue)
	req.Body = body

	res, err := s.send(ctx, table, req)
	if err != nil {
		return err
	}
	return checkAffected(res, table, pkField, pkValue)
}

func (s *Store) Delete(ctx context.Context, table, pkField string, pkValue interface{}) error {
	req := s.request(rest.Delete, table)
	req.Headers["Prefer"] = "return=representation"
	req.QueryParams[pkField] = "eq." + fmt.Sprint(pkValue)

	res, err := s.send(ctx, table, req)
	if err != nil {
		return err
	}
	return checkAffected(res, table, pkField, pkValue)
}

// checkAffected reads the representation of the touched rows.
func checkAffected(res *rest.Response, table, pkField string, pkValue interface{}) error {
	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(res.Body), &rows); err != nil {
		return &store.QueryError{Table: table, Message: "decoding response: " + err.Error()}
	}
	if len(rows) == 0 {
		return errors.Wrapf(store.ErrNoRows, "%s where %s = %v", table, pkField, pkValue)
	}
	return nil
}
