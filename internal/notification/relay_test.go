package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendTemplatedEmail(ctx context.Context, input *ses.SendTemplatedEmailInput, _ ...func(*ses.Options)) (*ses.SendTemplatedEmailOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendTemplatedEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSES) GetSendQuota(ctx context.Context, input *ses.GetSendQuotaInput, _ ...func(*ses.Options)) (*ses.GetSendQuotaOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*ses.GetSendQuotaOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var testSESConfig = SESRelayConfig{
	FromEmail:        "noreply@apt.kr",
	ConfigurationSet: "apply-desk",
	TemplateName:     "telecom-request",
}

func TestSESRelay_Loaded(t *testing.T) {
	assert.True(t, NewSESRelay(&MockSES{}, testSESConfig).Loaded(context.Background()))
	assert.False(t, NewSESRelay(nil, testSESConfig).Loaded(context.Background()))
	assert.False(t, NewSESRelay(&MockSES{}, SESRelayConfig{FromEmail: "a@b.kr"}).Loaded(context.Background()))
}

func TestSESRelay_Init(t *testing.T) {
	t.Run("quota available", func(t *testing.T) {
		api := &MockSES{}
		api.On("GetSendQuota", mock.Anything, mock.Anything).
			Return(&ses.GetSendQuotaOutput{Max24HourSend: 200, SentLast24Hours: 10}, nil)
		assert.NoError(t, NewSESRelay(api, testSESConfig).Init(context.Background()))
	})

	t.Run("unlimited quota", func(t *testing.T) {
		api := &MockSES{}
		api.On("GetSendQuota", mock.Anything, mock.Anything).
			Return(&ses.GetSendQuotaOutput{Max24HourSend: -1, SentLast24Hours: 5000}, nil)
		assert.NoError(t, NewSESRelay(api, testSESConfig).Init(context.Background()))
	})

	t.Run("quota exhausted", func(t *testing.T) {
		api := &MockSES{}
		api.On("GetSendQuota", mock.Anything, mock.Anything).
			Return(&ses.GetSendQuotaOutput{Max24HourSend: 200, SentLast24Hours: 200}, nil)
		assert.ErrorIs(t, NewSESRelay(api, testSESConfig).Init(context.Background()), ErrQuotaExhausted)
	})

	t.Run("api error", func(t *testing.T) {
		api := &MockSES{}
		api.On("GetSendQuota", mock.Anything, mock.Anything).Return(nil, errors.New("no credentials"))
		assert.Error(t, NewSESRelay(api, testSESConfig).Init(context.Background()))
	})
}

func TestSESRelay_SendBuildsTemplatedInput(t *testing.T) {
	api := &MockSES{}
	api.On("SendTemplatedEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendTemplatedEmailInput) bool {
		var data map[string]string
		if err := json.Unmarshal([]byte(*in.TemplateData), &data); err != nil {
			return false
		}
		return *in.Source == "noreply@apt.kr" &&
			*in.Template == "telecom-request" &&
			*in.ConfigurationSetName == "apply-desk" &&
			in.Destination.ToAddresses[0] == "admin@apt.kr" &&
			data["to_email"] == "admin@apt.kr" &&
			data["work_type_display"] == "LGU+" &&
			data["submittedAt"] == data["submitted_at"]
	})).Return(&ses.SendTemplatedEmailOutput{}, nil)

	relay := NewSESRelay(api, testSESConfig)
	params := TemplateParams{ToEmail: "admin@apt.kr", WorkTypeDisplay: "LGU+", SubmittedAt: "x", SubmittedAtLegacy: "x"}

	status, err := relay.Send(context.Background(), "admin@apt.kr", params)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	api.AssertExpectations(t)
}

func TestSESRelay_SendWrapsAPIError(t *testing.T) {
	api := &MockSES{}
	api.On("SendTemplatedEmail", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "MessageRejected", Message: "Email address is not verified"})

	_, err := NewSESRelay(api, testSESConfig).Send(context.Background(), "x@y.kr", TemplateParams{})
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Contains(t, err.Error(), "MessageRejected")
}
