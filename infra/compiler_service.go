package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/postarhq/postar/config"
	"github.com/postarhq/postar/errs"
	"github.com/postarhq/postar/lifecycle"
)

// CompilerService calls the external image-target compiler over HTTP. The
// service receives the posters in order, extracts tracking features and
// exports the binary dataset; none of that work happens here.
type CompilerService struct {
	ServiceURL   string
	PrivateKey   string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

func InitCompilerService(cfg *config.EnvConfig) *CompilerService {
	if cfg.Compiler.ServiceURL == "" {
		panic("Compiler service URL is not configured")
	}

	return &CompilerService{
		ServiceURL:   cfg.Compiler.ServiceURL,
		PrivateKey:   cfg.Compiler.PrivateKey,
		PollInterval: time.Duration(cfg.Compiler.PollInterval) * time.Millisecond,
		HTTPClient:   &http.Client{},
	}
}

type compileSubmitResponse struct {
	JobID string `json:"job_id"`
}

type compileStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// CompileImageTargets submits the ordered images, polls the job until it
// finishes and relays progress to onProgress. The returned dataset downloads
// the exported buffer on demand.
func (s *CompilerService) CompileImageTargets(ctx context.Context, images []image.Image, onProgress func(percent float64)) (lifecycle.Dataset, error) {
	if len(images) == 0 {
		return nil, errs.Precondition("no images to compile")
	}

	jobID, err := s.submit(ctx, images)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errs.Compilation("compilation cancelled", ctx.Err())
		case <-ticker.C:
			status, err := s.status(ctx, jobID)
			if err != nil {
				return nil, err
			}
			if onProgress != nil {
				onProgress(status.Progress)
			}
			switch status.Status {
			case "completed":
				return &compiledDataset{service: s, jobID: jobID}, nil
			case "failed":
				return nil, errs.Compilation("compiler service reported failure: "+status.Message, nil)
			}
		}
	}
}

func (s *CompilerService) submit(ctx context.Context, images []image.Image) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for i, img := range images {
		fw, err := w.CreateFormFile("images", fmt.Sprintf("%d.png", i))
		if err != nil {
			return "", fmt.Errorf("failed to create form file: %w", err)
		}
		// PNG keeps the submission lossless regardless of the upload format.
		if err := imaging.Encode(fw, img, imaging.PNG); err != nil {
			return "", fmt.Errorf("failed to encode image %d: %w", i, err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/compile", s.ServiceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if s.PrivateKey != "" {
		req.Header.Set("Private-Key", s.PrivateKey)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", errs.Connectivity("failed to reach compiler service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return "", errs.Compilation(fmt.Sprintf("compiler service returned %d: %s", resp.StatusCode, raw), nil)
	}

	var submitted compileSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", errs.Compilation("failed to decode compiler response", err)
	}
	if submitted.JobID == "" {
		return "", errs.Compilation("compiler service returned no job id", nil)
	}
	return submitted.JobID, nil
}

func (s *CompilerService) status(ctx context.Context, jobID string) (*compileStatusResponse, error) {
	url := fmt.Sprintf("%s/api/v1/compile/%s", s.ServiceURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.PrivateKey != "" {
		req.Header.Set("Private-Key", s.PrivateKey)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, errs.Connectivity("failed to reach compiler service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errs.Compilation(fmt.Sprintf("compiler service returned %d: %s", resp.StatusCode, raw), nil)
	}

	var status compileStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errs.Compilation("failed to decode compiler status", err)
	}
	return &status, nil
}

// compiledDataset defers the export download until the caller asks for the
// buffer, mirroring the compiler's two-step compile/export contract.
type compiledDataset struct {
	service *CompilerService
	jobID   string
}

func (d *compiledDataset) ExportData(ctx context.Context) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/compile/%s/data", d.service.ServiceURL, d.jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.service.PrivateKey != "" {
		req.Header.Set("Private-Key", d.service.PrivateKey)
	}

	resp, err := d.service.HTTPClient.Do(req)
	if err != nil {
		return nil, errs.Connectivity("failed to download dataset", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, errs.Compilation(fmt.Sprintf("compiler service returned %d: %s", resp.StatusCode, raw), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Connectivity("failed to read dataset", err)
	}
	if len(data) == 0 {
		return nil, errs.Compilation("compiler service exported an empty dataset", nil)
	}
	return data, nil
}
