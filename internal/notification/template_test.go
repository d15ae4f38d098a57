package notification

import (
	"testing"
	"time"

	"apply-desk/internal/models"

	"github.com/stretchr/testify/assert"
)

var seoul = time.FixedZone("KST", 9*60*60)

func TestBuildTemplateParams_Defaults(t *testing.T) {
	app := &models.Application{
		ID:                "17",
		ApplicationNumber: "APP-20250301-1234",
		Name:              "101동 202호",
		Phone:             "010-1111-2222",
		WorkType:          "C",
		SubmittedAt:       time.Date(2025, 3, 1, 5, 30, 0, 0, time.UTC),
	}

	p := BuildTemplateParams(app, "", "", seoul)
	assert.Equal(t, DefaultApartmentName, p.ApartmentName)
	assert.Equal(t, "APP-20250301-1234", p.ApplicationNumber)
	assert.Equal(t, "LGU+", p.WorkTypeDisplay)
	assert.Equal(t, "미지정", p.StartDate)
	assert.Equal(t, "특별한 요청사항 없음", p.Description)
	assert.Equal(t, "접수일시:", p.SubmissionLabel)
	assert.Equal(t, "2025년 3월 1일 토요일 오후 02:30", p.SubmittedAt)
	assert.Equal(t, p.SubmittedAt, p.SubmittedAtLegacy)
	assert.Empty(t, p.ToEmail)
	assert.Equal(t, "a@b.kr", p.WithRecipient("a@b.kr").ToEmail)
}

func TestBuildTemplateParams_UnknownWorkType(t *testing.T) {
	p := BuildTemplateParams(&models.Application{ID: "LOCAL-1"}, "Blue 아파트", "", seoul)
	assert.Equal(t, "미상", p.WorkTypeDisplay)
	assert.Equal(t, "LOCAL-1", p.ApplicationNumber)
	assert.Equal(t, "Blue 아파트", p.ApartmentName)
}

func TestFormatKoreanTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2025, 1, 6, 0, 5, 0, 0, seoul), "2025년 1월 6일 월요일 오전 12:05"},
		{time.Date(2025, 1, 6, 12, 0, 0, 0, seoul), "2025년 1월 6일 월요일 오후 12:00"},
		{time.Date(2025, 12, 31, 23, 59, 0, 0, seoul), "2025년 12월 31일 수요일 오후 11:59"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatKoreanTimestamp(tt.in, seoul))
	}
}
