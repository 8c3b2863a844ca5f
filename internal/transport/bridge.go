// In-process bridge transport for embedded hosting shells.
package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashgrove/chorus/internal/shared"
)

// Bridge is the object a hosting shell provides when the client runs embedded
// alongside the backend. It exposes the same named operations as the network
// API; Call returns the operation's JSON result or an error.
type Bridge interface {
	Call(ctx context.Context, op string, payload json.RawMessage) (json.RawMessage, error)
}

// ProgressNotifier is optionally implemented by bridges whose host can push
// progress updates instead of being polled. See [WatchProgress].
type ProgressNotifier interface {
	NotifyProgress(ctx context.Context) (<-chan ProgressSnapshot, error)
}

// BridgeTransport implements [Transport] by dispatching directly to a host
// bridge and wrapping its results into the same shapes a network call produces.
type BridgeTransport struct {
	bridge Bridge
}

var _ Transport = (*BridgeTransport)(nil)

// NewBridgeTransport wraps the host-provided bridge.
func NewBridgeTransport(bridge Bridge) *BridgeTransport {
	return &BridgeTransport{bridge: bridge}
}

func (t *BridgeTransport) Name() string { return "bridge" }

func (t *BridgeTransport) SubmitGeneration(ctx context.Context, params GenerationParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.call(ctx, "submitGeneration", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *BridgeTransport) SubmitSeparation(ctx context.Context, params SeparationParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.call(ctx, "submitSeparation", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *BridgeTransport) SubmitMIDIExtraction(ctx context.Context, params MIDIParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.call(ctx, "submitMidiExtraction", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *BridgeTransport) SubmitVoiceClone(ctx context.Context, params VoiceCloneParams) (*SubmitResult, error) {
	var result SubmitResult
	if err := t.call(ctx, "submitVoiceClone", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *BridgeTransport) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var status JobStatus
	payload := struct {
		JobID string `json:"job_id"`
	}{jobID}
	if err := t.call(ctx, "getJobStatus", payload, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (t *BridgeTransport) SharedProgress(ctx context.Context) (*ProgressSnapshot, error) {
	var snap ProgressSnapshot
	if err := t.call(ctx, "getSharedProgress", struct{}{}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (t *BridgeTransport) FeatureStatus(ctx context.Context, featureID string) (*FeatureStatus, error) {
	var status FeatureStatus
	payload := struct {
		FeatureID string `json:"feature_id"`
	}{featureID}
	if err := t.call(ctx, "getFeatureStatus", payload, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (t *BridgeTransport) EnsureFeature(ctx context.Context, featureID string) error {
	var ack struct {
		OK bool `json:"ok"`
	}
	payload := struct {
		FeatureID string `json:"feature_id"`
	}{featureID}
	if err := t.call(ctx, "ensureFeature", payload, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return shared.NewOperationError("ensureFeature", featureID, "backend declined install request")
	}
	return nil
}

func (t *BridgeTransport) ListArtifacts(ctx context.Context) (*ArtifactListing, error) {
	var listing ArtifactListing
	if err := t.call(ctx, "listArtifacts", struct{}{}, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (t *BridgeTransport) ControlTraining(ctx context.Context, action TrainingAction) (*TrainingResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: training action %q", shared.ErrInvalidArgument, action)
	}
	var result TrainingResult
	payload := struct {
		Action string `json:"action"`
	}{string(action)}
	if err := t.call(ctx, "controlTraining", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// call encodes the payload, dispatches to the bridge, and decodes its result,
// normalizing failures exactly like the HTTP path does. Bridges report
// backend-level failures as an {ok:false, error} envelope; that becomes an
// OperationError so callers see one failure shape regardless of transport.
func (t *BridgeTransport) call(ctx context.Context, op string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return shared.NewTransportError(op, fmt.Sprintf("failed to encode payload: %v", err))
	}

	raw, err := t.bridge.Call(ctx, op, data)
	if err != nil {
		return shared.NewTransportError(op, err.Error())
	}

	var envelope struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.OK != nil && !*envelope.OK && envelope.Error != "" {
			return shared.NewOperationError(op, "", envelope.Error)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return shared.NewTransportError(op, fmt.Sprintf("failed to decode bridge result: %v", err))
	}
	return nil
}
