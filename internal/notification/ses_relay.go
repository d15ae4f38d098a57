package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// SESAPI is the part of the SES client the relay uses.
type SESAPI interface {
	SendTemplatedEmail(ctx context.Context, input *ses.SendTemplatedEmailInput, optFns ...func(*ses.Options)) (*ses.SendTemplatedEmailOutput, error)
	GetSendQuota(ctx context.Context, input *ses.GetSendQuotaInput, optFns ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error)
}

type SESRelayConfig struct {
	FromEmail string
	// ConfigurationSet and TemplateName play the role of the service id and
	// template id of the relay RPC.
	ConfigurationSet string
	TemplateName     string
}

// SESRelay sends templated mail through Amazon SES.
type SESRelay struct {
	api SESAPI
	cfg SESRelayConfig
}

var ErrQuotaExhausted = errors.New("ses: 24h send quota exhausted")

func NewSESRelay(api SESAPI, cfg SESRelayConfig) *SESRelay {
	return &SESRelay{api: api, cfg: cfg}
}

func (r *SESRelay) Name() string { return "ses" }

func (r *SESRelay) Loaded(context.Context) bool {
	return r.api != nil && r.cfg.FromEmail != "" && r.cfg.TemplateName != ""
}

// Init succeeds when the account answers GetSendQuota with quota left.
func (r *SESRelay) Init(ctx context.Context) error {
	out, err := r.api.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return fmt.Errorf("ses get send quota: %w", err)
	}
	if out.Max24HourSend >= 0 && out.SentLast24Hours >= out.Max24HourSend {
		return ErrQuotaExhausted
	}
	return nil
}

func (r *SESRelay) Send(ctx context.Context, recipient string, params TemplateParams) (int, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("encode template data: %w", err)
	}

	input := &ses.SendTemplatedEmailInput{
		Source:       &r.cfg.FromEmail,
		Template:     &r.cfg.TemplateName,
		TemplateData: stringPtr(string(data)),
		Destination:  &types.Destination{ToAddresses: []string{recipient}},
	}
	if r.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = &r.cfg.ConfigurationSet
	}

	out, err := r.api.SendTemplatedEmail(ctx, input)
	if err != nil {
		return 0, relayError(err)
	}
	return statusCode(out), nil
}

func statusCode(out *ses.SendTemplatedEmailOutput) int {
	if out == nil {
		return http.StatusOK
	}
	if raw, ok := awsmiddleware.GetRawResponse(out.ResultMetadata).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		return raw.StatusCode
	}
	return http.StatusOK
}

func relayError(err error) error {
	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return &RelayError{StatusCode: status, Err: err}
}

func stringPtr(s string) *string { return &s }
