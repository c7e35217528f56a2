package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/a-h/jsonapi"
	"github.com/a-h/pdfqa/models"
)

func New(baseURL string) Client {
	return Client{
		baseURL: baseURL,
	}
}

type Client struct {
	baseURL string
}

// Upload is a document to send to the server.
type Upload struct {
	Name string
	Data io.Reader
}

// DocumentsPost uploads documents and waits for the server to rebuild its index.
func (c Client) DocumentsPost(ctx context.Context, uploads []Upload) (resp models.DocumentsPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("documents").String()
	if err != nil {
		return resp, err
	}
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for _, u := range uploads {
		fw, err := mw.CreateFormFile("files", u.Name)
		if err != nil {
			return resp, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err = io.Copy(fw, u.Data); err != nil {
			return resp, fmt.Errorf("failed to write %q: %w", u.Name, err)
		}
	}
	if err = mw.Close(); err != nil {
		return resp, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := jsonapi.Raw(httpReq)
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	err = decode(res, &resp)
	return resp, err
}

func (c Client) QueryPost(ctx context.Context, req models.QueryPostRequest) (resp models.QueryPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("query").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.QueryPostRequest, models.QueryPostResponse](ctx, url, req)
}

func (c Client) ContextPost(ctx context.Context, req models.ContextPostRequest) (resp models.ContextPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("context").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.ContextPostRequest, models.ContextPostResponse](ctx, url, req)
}

func (c Client) IndexGet(ctx context.Context) (resp models.IndexGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("index").String()
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq)
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	err = decode(res, &resp)
	return resp, err
}

func decode(res *http.Response, resp any) (err error) {
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	if err = json.NewDecoder(res.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
