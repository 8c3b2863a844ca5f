// HTTP transport against a locally hosted studio backend process.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ashgrove/chorus/internal/shared"
)

// HTTPTransport implements [Transport] over fixed local endpoints.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTPTransport for the backend at baseURL.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:7260"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPTransport{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) SubmitGeneration(ctx context.Context, params GenerationParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.post(ctx, "submitGeneration", "/api/generate", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) SubmitSeparation(ctx context.Context, params SeparationParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.post(ctx, "submitSeparation", "/api/separate", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) SubmitMIDIExtraction(ctx context.Context, params MIDIParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.post(ctx, "submitMidiExtraction", "/api/midi", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) SubmitVoiceClone(ctx context.Context, params VoiceCloneParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.post(ctx, "submitVoiceClone", "/api/voice/clone", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var status JobStatus
	path := "/api/jobs/" + url.PathEscape(jobID)
	if err := t.get(ctx, "getJobStatus", path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (t *HTTPTransport) SharedProgress(ctx context.Context) (*ProgressSnapshot, error) {
	var snap ProgressSnapshot
	if err := t.get(ctx, "getSharedProgress", "/api/progress", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (t *HTTPTransport) FeatureStatus(ctx context.Context, featureID string) (*FeatureStatus, error) {
	var status FeatureStatus
	path := "/api/features/" + url.PathEscape(featureID)
	if err := t.get(ctx, "getFeatureStatus", path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (t *HTTPTransport) EnsureFeature(ctx context.Context, featureID string) error {
	var ack struct {
		OK bool `json:"ok"`
	}
	path := "/api/features/" + url.PathEscape(featureID) + "/ensure"
	if err := t.post(ctx, "ensureFeature", path, struct{}{}, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return shared.NewOperationError("ensureFeature", featureID, "backend declined install request")
	}
	return nil
}

func (t *HTTPTransport) ListArtifacts(ctx context.Context) (*ArtifactListing, error) {
	var listing ArtifactListing
	if err := t.get(ctx, "listArtifacts", "/api/artifacts", &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (t *HTTPTransport) ControlTraining(ctx context.Context, action TrainingAction) (*TrainingResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: training action %q", shared.ErrInvalidArgument, action)
	}
	var result TrainingResult
	path := "/api/training/" + string(action)
	if err := t.post(ctx, "controlTraining", path, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get performs a GET and decodes the JSON body into out, normalizing failures.
func (t *HTTPTransport) get(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return shared.NewTransportError(op, err.Error())
	}
	return t.do(op, req, out)
}

// post performs a POST with a JSON payload and decodes the JSON body into out.
func (t *HTTPTransport) post(ctx context.Context, op, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return shared.NewTransportError(op, fmt.Sprintf("failed to encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return shared.NewTransportError(op, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(op, req, out)
}

// do executes the request and maps every failure mode into the shared taxonomy:
// network/decoding problems become TransportError, backend-reported failures
// become OperationError.
func (t *HTTPTransport) do(op string, req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return shared.NewTransportError(op, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.NewTransportError(op, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var backendErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &backendErr); err == nil && backendErr.Error != "" {
			return shared.NewOperationError(op, "", backendErr.Error)
		}
		return shared.NewTransportError(op, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shared.NewTransportError(op, fmt.Sprintf("failed to decode response: %v", err))
	}
	return nil
}
