package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// ErrResendUnconfigured is returned when no API key is set. Callers treat it
// as a failed delivery, not a fatal condition.
var ErrResendUnconfigured = errors.New("Resend API key is not configured")

type ResendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type ResendSendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c Client) ResendSendEmail(ctx context.Context, resendReqBody ResendSendRequest) (ResendSendResponse, error) {
	if c.ResendAPIKey == "" {
		return ResendSendResponse{}, ErrResendUnconfigured
	}

	reqBody, err := json.Marshal(resendReqBody)
	if err != nil {
		return ResendSendResponse{}, errors.Wrapf(err, "ResendSendEmail: ResendSendRequest JSON marshalling error, req: %+v", resendReqBody)
	}

	req, err := newRequest(http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(reqBody))
	if err != nil {
		return ResendSendResponse{}, errors.Wrapf(err, "ResendSendEmail: error creating HTTP request from body: %s", reqBody)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ResendAPIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return ResendSendResponse{}, errors.Wrapf(err, "ResendSendEmail: error doing request: %+v", req)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Errorf("ResendSendEmail: error closing response body, req: %+v, err: %v", req, err)
		}
	}()

	resendResp := ResendSendResponse{}
	respBody, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300000))
	if err != nil {
		return resendResp, errors.Wrapf(err,
			"ResendSendEmail: error reading Resend API response body, req: %+v, response body: %s", req, respBody)
	}
	if err = json.Unmarshal(respBody, &resendResp); err != nil {
		return resendResp, errors.Wrapf(err,
			"ResendSendEmail: error unmarshalling Resend API response body, req: %+v, response body: %s", req, respBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resendResp, errors.Errorf(
			"ResendSendEmail: Resend API returned status %d, message: %s", resp.StatusCode, resendResp.Message)
	}
	return resendResp, nil
}
