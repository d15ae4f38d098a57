package notification

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"apply-desk/internal/common/logger"
	"apply-desk/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type NoticeKind string

const (
	// NoticeLocalBackup is posted when a submission only reached the ledger.
	NoticeLocalBackup NoticeKind = "local_backup"
	// NoticeDeliveryFallback is posted when every relay send failed.
	NoticeDeliveryFallback NoticeKind = "delivery_fallback"
)

// Notice is a human-readable summary for an operator.
type Notice struct {
	Kind          NoticeKind
	ApplicationID string
	Summary       string
	Text          string
	AdminPhones   []string
	AdminEmails   []string
}

// NoticeSurface is somewhere an operator will see a notice.
type NoticeSurface interface {
	Post(ctx context.Context, notice Notice) error
	Name() string
}

type noticeInput struct {
	app         *models.Application
	displayName string
	phones      []string
	emails      []string
	loc         *time.Location
}

func buildNotice(kind NoticeKind, in noticeInput) Notice {
	app := in.app
	name := in.displayName
	if name == "" {
		name = DefaultApartmentName
	}
	workType := app.WorkTypeDisplay
	if workType == "" {
		workType = models.WorkTypeLabel(app.WorkType)
	}

	var b strings.Builder
	if kind == NoticeLocalBackup {
		fmt.Fprintf(&b, "[%s] 새로운 통신환경개선 신청서 (로컬 백업)\n\n", name)
	} else {
		fmt.Fprintf(&b, "[%s] 새로운 통신환경개선 신청서\n\n", name)
	}
	fmt.Fprintf(&b, "■ 신청번호: %s\n", app.ID)
	fmt.Fprintf(&b, "■ 신청자: %s\n", app.Name)
	fmt.Fprintf(&b, "■ 연락처: %s\n", app.Phone)
	fmt.Fprintf(&b, "■ 동/호수: %s\n", app.Name)
	fmt.Fprintf(&b, "■ 현재 통신사: %s\n", workType)
	fmt.Fprintf(&b, "■ 희망일: %s\n", orDefault(app.StartDate, unsetStartDate))
	fmt.Fprintf(&b, "■ 상세내용: %s\n", orDefault(app.Description, "없음"))
	fmt.Fprintf(&b, "■ 접수일시: %s\n\n", formatNoticeDate(app.SubmittedAt, in.loc))

	if kind == NoticeLocalBackup {
		b.WriteString("⚠️ 네트워크 오류로 로컬에 저장되었습니다.\n\n")
		fmt.Fprintf(&b, "📞 긴급 연락처: %s\n", firstOr(in.phones, "관리자 연락처 미설정"))
		fmt.Fprintf(&b, "📧 관리자 이메일: %s\n\n", firstOr(in.emails, "관리자 이메일 미설정"))
		b.WriteString("💡 해결방법:\n")
		b.WriteString("1. 네트워크 연결을 확인해주세요\n")
		b.WriteString("2. WiFi 또는 데이터 연결 상태를 점검해주세요\n")
		b.WriteString("3. 위 연락처로 직접 연락주시면 신속히 처리해드립니다\n")
	} else {
		b.WriteString("관리자님께서 확인하시고 적절한 조치를 취해주시기 바랍니다.\n")
	}

	return Notice{
		Kind:          kind,
		ApplicationID: app.ID,
		Summary:       fmt.Sprintf("[%s] 신청서 %s %s %s (%s)", name, app.ID, app.Name, app.Phone, workType),
		Text:          b.String(),
		AdminPhones:   in.phones,
		AdminEmails:   in.emails,
	}
}

// formatNoticeDate renders t like "2025년 3월 1일 오후 02:30".
func formatNoticeDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d년 %d월 %d일 %s %02d:%02d", t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute())
}

func firstOr(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	return list[0]
}

// LogNotice writes notices to the operator log.
type LogNotice struct {
	Logger logger.Logger
}

func (LogNotice) Name() string { return "log" }

func (n LogNotice) Post(_ context.Context, notice Notice) error {
	n.Logger.Warn("operator notice", map[string]interface{}{
		"kind":          string(notice.Kind),
		"applicationId": notice.ApplicationID,
		"adminEmails":   strings.Join(notice.AdminEmails, ", "),
		"notice":        notice.Text,
	})
	return nil
}

// SNSAPI is the part of the SNS client SMSNotice uses.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSNotice texts the notice summary to the admin phones through SNS.
type SMSNotice struct {
	api      SNSAPI
	senderID string
}

var ErrNoAdminPhones = errors.New("sms notice: no admin phone numbers")

func NewSMSNotice(api SNSAPI, senderID string) *SMSNotice {
	return &SMSNotice{api: api, senderID: senderID}
}

func (*SMSNotice) Name() string { return "sms" }

func (n *SMSNotice) Post(ctx context.Context, notice Notice) error {
	if len(notice.AdminPhones) == 0 {
		return ErrNoAdminPhones
	}

	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: stringPtr("String"), StringValue: stringPtr("Transactional")},
	}
	if n.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{DataType: stringPtr("String"), StringValue: stringPtr(n.senderID)}
	}

	var errs []error
	for _, phone := range notice.AdminPhones {
		number, ok := ToE164(phone)
		if !ok {
			errs = append(errs, fmt.Errorf("sms notice: invalid phone %q", phone))
			continue
		}
		_, err := n.api.Publish(ctx, &sns.PublishInput{
			PhoneNumber:       stringPtr(number),
			Message:           stringPtr(notice.Summary),
			MessageAttributes: attrs,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("sms notice to %s: %w", number, err))
		}
	}
	return errors.Join(errs...)
}

var nonDigits = regexp.MustCompile(`\D`)

// ToE164 converts a Korean phone number such as 010-1234-5678 to +821012345678.
func ToE164(phone string) (string, bool) {
	trimmed := strings.TrimSpace(phone)
	digits := nonDigits.ReplaceAllString(trimmed, "")
	switch {
	case strings.HasPrefix(trimmed, "+") && len(digits) >= 8:
		return "+" + digits, true
	case strings.HasPrefix(digits, "82") && len(digits) >= 11:
		return "+" + digits, true
	case strings.HasPrefix(digits, "0") && len(digits) >= 9:
		return "+82" + digits[1:], true
	default:
		return "", false
	}
}

// MultiNotice posts to every surface. A notice counts as posted when at
// least one surface accepted it; individual failures are logged.
type MultiNotice struct {
	Surfaces []NoticeSurface
	Logger   logger.Logger
}

func (*MultiNotice) Name() string { return "multi" }

func (m *MultiNotice) Post(ctx context.Context, notice Notice) error {
	var errs []error
	for _, s := range m.Surfaces {
		if err := s.Post(ctx, notice); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			if m.Logger != nil {
				m.Logger.Warn("notice surface failed", map[string]interface{}{
					"surface": s.Name(),
					"kind":    string(notice.Kind),
					"error":   err.Error(),
				})
			}
		}
	}
	if len(errs) < len(m.Surfaces) {
		return nil
	}
	return errors.Join(errs...)
}
