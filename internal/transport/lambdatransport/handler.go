package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path"

	"github.com/aws/aws-lambda-go/events"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/transport/rundto"
)

type Handler struct {
	svc app.Runner
}

func NewHandler(svc app.Runner) *Handler {
	return &Handler{svc: svc}
}

// Run serves every run mode from one function. The mode comes from the body,
// or from the last path segment (POST /v1/dag) when the body has none.
func (h *Handler) Run(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, rundto.ErrorBody{Error: "invalid body", Details: err.Error()}), nil
	}

	var in rundto.RunRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, rundto.ErrorBody{Error: "invalid json", Details: err.Error()}), nil
	}

	raw := in.Mode
	if raw == "" {
		raw = path.Base(req.RawPath)
	}
	mode, err := app.ParseMode(raw)
	if err != nil {
		return jsonResp(http.StatusBadRequest, rundto.ErrorBody{Error: "invalid request", Details: err.Error()}), nil
	}

	status, out := rundto.Response(rundto.Dispatch(ctx, h.svc, mode, in))
	return jsonResp(status, out), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       `{"error":"failed to encode response"}`,
		}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}
