package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smarta/server/internal/model"
)

const paymentFunction = "mpesa-payment"

// FunctionsClient invokes edge functions
type FunctionsClient struct {
	api *Client
}

// Invoke POSTs body to the named function and decodes its JSON answer into dest
func (f *FunctionsClient) Invoke(ctx context.Context, name string, body, dest any) error {
	return f.api.do(ctx, request{
		service: "functions",
		method:  http.MethodPost,
		path:    "/functions/v1/" + name,
		body:    body,
		token:   AccessTokenFrom(ctx),
	}, dest)
}

// InitiatePayment asks the payment function to push an STK prompt to the
// payer's phone. An answer with success=false is an ErrPaymentDeclined error.
func (f *FunctionsClient) InitiatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResponse, error) {
	var resp model.PaymentResponse
	if err := f.Invoke(ctx, paymentFunction+"/initiate", req, &resp); err != nil {
		return nil, fmt.Errorf("payment initiation failed: %w", err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, msg)
	}
	return &resp, nil
}

type paymentStatusRequest struct {
	PaymentID string `json:"payment_id"`
}

// PaymentStatus asks the payment function for the settlement state of paymentID
func (f *FunctionsClient) PaymentStatus(ctx context.Context, paymentID string) (*model.PaymentStatusResponse, error) {
	var resp model.PaymentStatusResponse
	if err := f.Invoke(ctx, paymentFunction+"/status", paymentStatusRequest{PaymentID: paymentID}, &resp); err != nil {
		return nil, fmt.Errorf("failed to check payment status: %w", err)
	}
	return &resp, nil
}
