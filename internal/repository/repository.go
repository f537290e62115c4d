package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carelink-dev/shift-board/engine/internal/config"
	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type tokenCtxKey struct{}

// WithToken 把操作者的 bearer token 附在 context 中，优先于配置中的服务 token
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// Repository 是后端 REST 接口的客户端，后端是唯一的数据来源
type Repository struct {
	cfg     *config.Config
	baseURL string
	client  *http.Client
}

func NewRepository(cfg *config.Config, client *http.Client) *Repository {
	if client == nil {
		client = &http.Client{}
	}
	return &Repository{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		client:  client,
	}
}

func (r *Repository) token(ctx context.Context) string {
	if token, ok := ctx.Value(tokenCtxKey{}).(string); ok && token != "" {
		return token
	}
	return r.cfg.Backend.Token
}

func (r *Repository) do(ctx context.Context, op, method, path string, query url.Values, body any, dst any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Backend.RequestTimeout)*time.Second)
	defer cancel()

	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := r.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, &domain.NetworkFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &domain.NetworkFailure{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	// 401 只返回给调用方，不在这里处理登出
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &domain.NetworkFailure{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(payload),
			Err:        fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode),
		}
	}

	if dst != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, dst); err != nil {
			return resp.StatusCode, &domain.NetworkFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}

// errorDetail 提取后端返回的错误信息，支持 detail / error / message / non_field_errors
func errorDetail(payload []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message", "non_field_errors"} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return ""
}

// decodeList 同时接受裸数组和 {"results": [...]} 两种列表格式
func decodeList(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		if envelope.Results == nil {
			return errors.New("list response has no results field")
		}
		trimmed = envelope.Results
	}
	return json.Unmarshal(trimmed, dst)
}

func (r *Repository) getList(ctx context.Context, op, path string, query url.Values, dst any) error {
	var raw json.RawMessage
	if _, err := r.do(ctx, op, http.MethodGet, path, query, nil, &raw); err != nil {
		return err
	}
	if err := decodeList(raw, dst); err != nil {
		return &domain.NetworkFailure{Op: op, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}
