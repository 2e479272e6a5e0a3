package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderatehq/voiceworker/internal/session"
	"github.com/moderatehq/voiceworker/pkg/llm"
)

type fakeDB struct {
	nodeDescs  map[string]string
	frameNames map[string]string
	frameDescs map[string]string
	err        error
}

func (f *fakeDB) GetComponentDescription(_ context.Context, _, _, _ string, nodeID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.nodeDescs[nodeID], nil
}

func (f *fakeDB) GetFrameName(_ context.Context, _, _, frameID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.frameNames[frameID], nil
}

func (f *fakeDB) GetFrameDescription(_ context.Context, _, _, frameID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.frameDescs[frameID], nil
}

type fakeRegistrar struct {
	methods map[string]HandlerFunc
}

func (f *fakeRegistrar) RegisterMethod(method string, handler HandlerFunc) {
	if f.methods == nil {
		f.methods = map[string]HandlerFunc{}
	}
	f.methods[method] = handler
}

func decodeResponse(t *testing.T, raw string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func newTestSession() (*session.Session, *llm.ChatContext) {
	chatCtx := llm.NewChatContext()
	chatCtx.Append(llm.ChatMessage{Role: llm.RoleSystem, Content: "base prompt"})
	chatCtx.Append(llm.ChatMessage{Role: llm.RoleSystem, Content: "no screen yet"})
	return session.New(chatCtx, nil), chatCtx
}

func clickPayload(t *testing.T, p ComponentClickPayload) string {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return string(b)
}

func TestInteractionHandler_ComponentClick_SameFrame(t *testing.T) {
	db := &fakeDB{
		nodeDescs:  map[string]string{"node-1": "Submit button"},
		frameNames: map[string]string{"frame-1": "Checkout"},
	}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), clickPayload(t, ComponentClickPayload{
		TenantID:   "t1",
		FileKey:    "fk",
		FrameID:    "frame-1",
		NodeID:     "node-1",
		NewFrameID: "frame-1",
		Timestamp:  1700000000,
	})))

	require.True(t, resp.Success)
	require.Len(t, chatCtx.Messages, 3)
	last := chatCtx.Messages[2]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "[[Clicked on 'Submit button' on 'Checkout' screen]]", last.Content)
}

func TestInteractionHandler_ComponentClick_NavigationCascadesScreenChange(t *testing.T) {
	db := &fakeDB{
		nodeDescs:  map[string]string{"node-1": "Pay now"},
		frameNames: map[string]string{"frame-1": "Checkout", "frame-2": "Receipt"},
		frameDescs: map[string]string{"frame-2": "Shows the order confirmation"},
	}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), clickPayload(t, ComponentClickPayload{
		TenantID:   "t1",
		FileKey:    "fk",
		FrameID:    "frame-1",
		NodeID:     "node-1",
		NewFrameID: "frame-2",
		Timestamp:  1700000000,
	})))

	require.True(t, resp.Success)
	require.Len(t, chatCtx.Messages, 3)
	assert.Equal(t, "[[Clicked on 'Pay now' on 'Checkout' screen and moved to 'Receipt' screen]]", chatCtx.Messages[2].Content)
	assert.Equal(t, llm.RoleSystem, chatCtx.Messages[1].Role)
	assert.Equal(t, "### Description of Receipt: Shows the order confirmation ###", chatCtx.Messages[1].Content)
}

func TestInteractionHandler_ComponentClick_AnimationVariant(t *testing.T) {
	db := &fakeDB{
		frameNames: map[string]string{"frame-1": "Home", "frame-2": "Menu"},
	}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), clickPayload(t, ComponentClickPayload{
		TenantID:   "t1",
		FileKey:    "fk",
		FrameID:    "frame-1",
		NewFrameID: "frame-2",
		Animation:  true,
		Timestamp:  1,
	})))

	require.True(t, resp.Success)
	assert.Equal(t, "[[Animation on 'Home' screen moved user to 'Menu' screen]]", chatCtx.Messages[2].Content)
}

func TestInteractionHandler_ComponentClick_Misclick(t *testing.T) {
	db := &fakeDB{
		frameNames: map[string]string{"frame-1": "Home"},
	}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), clickPayload(t, ComponentClickPayload{
		TenantID:  "t1",
		FileKey:   "fk",
		FrameID:   "frame-1",
		Timestamp: 1,
	})))

	require.True(t, resp.Success)
	assert.Equal(t, "[[Misclicked on 'somewhere' on 'Home' screen and didn't open any screen]]", chatCtx.Messages[2].Content)
}

func TestInteractionHandler_ComponentClick_MissingFields(t *testing.T) {
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(&fakeDB{}, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), `{"frameId":"frame-1"}`))

	require.False(t, resp.Success)
	assert.Equal(t, "Missing required fields: tenantId, fileKey", resp.Message)
	assert.Len(t, chatCtx.Messages, 2)
}

func TestInteractionHandler_ComponentClick_UnknownFrameSkipsMessage(t *testing.T) {
	db := &fakeDB{}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), clickPayload(t, ComponentClickPayload{
		TenantID:  "t1",
		FileKey:   "fk",
		FrameID:   "frame-unknown",
		Timestamp: 1,
	})))

	require.True(t, resp.Success)
	assert.Len(t, chatCtx.Messages, 2)
}

func TestInteractionHandler_ComponentClick_BadJSON(t *testing.T) {
	sess, _ := newTestSession()
	h := NewInteractionHandler(&fakeDB{}, sess, nil)

	resp := decodeResponse(t, h.HandleComponentClick(context.Background(), "{not json"))
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "invalid JSON payload")

	resp = decodeResponse(t, h.HandleComponentClick(context.Background(), "   "))
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "empty payload")
}

func TestInteractionHandler_ScreenChange(t *testing.T) {
	db := &fakeDB{
		frameNames: map[string]string{"frame-2": "Receipt"},
		frameDescs: map[string]string{"frame-2": "Order summary"},
	}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleScreenChange(context.Background(),
		`{"tenantId":"t1","fileKey":"fk","frameId":"frame-2","timestamp":5}`))

	require.True(t, resp.Success)
	assert.Equal(t, "### Description of Receipt: Order summary ###", chatCtx.Messages[1].Content)
}

func TestInteractionHandler_ScreenChange_LookupFailureStillSucceeds(t *testing.T) {
	db := &fakeDB{err: assert.AnError}
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(db, sess, nil)

	resp := decodeResponse(t, h.HandleScreenChange(context.Background(),
		`{"tenantId":"t1","fileKey":"fk","frameId":"frame-2","timestamp":5}`))

	require.True(t, resp.Success)
	assert.Equal(t, "no screen yet", chatCtx.Messages[1].Content)
}

func TestInteractionHandler_TranscribedText(t *testing.T) {
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(&fakeDB{}, sess, nil)

	resp := decodeResponse(t, h.HandleTranscribedText(context.Background(),
		`{"transcribedText":"I want to go back","timestamp":1700000000}`))

	require.True(t, resp.Success)
	require.Len(t, chatCtx.Messages, 3)
	assert.Equal(t, "[[I want to go back]]", chatCtx.Messages[2].Content)
}

func TestInteractionHandler_TranscribedText_InvalidData(t *testing.T) {
	sess, chatCtx := newTestSession()
	h := NewInteractionHandler(&fakeDB{}, sess, nil)

	resp := decodeResponse(t, h.HandleTranscribedText(context.Background(),
		`{"transcribedText":"hello"}`))

	require.False(t, resp.Success)
	assert.Equal(t, "Invalid data", resp.Message)
	assert.Equal(t, "hello", resp.Data["transcribedText"])
	assert.Len(t, chatCtx.Messages, 2)
}

func TestInteractionHandler_Register(t *testing.T) {
	sess, _ := newTestSession()
	reg := &fakeRegistrar{}
	NewInteractionHandler(&fakeDB{}, sess, nil).Register(reg)

	for _, method := range []string{MethodComponentClick, MethodScreenChange, MethodTranscribedText} {
		assert.Contains(t, reg.methods, method)
	}
}
