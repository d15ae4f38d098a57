package syncadminsettings

const (
	DirectionPull = "pull"
	DirectionPush = "push"
)

type Input struct {
	Direction string `json:"direction"`
}

type Output struct {
	SyncDirection string `json:"syncDirection"`
	SyncStatus    string `json:"syncStatus"`
	Title         string `json:"title,omitempty"`
	PhoneCount    int    `json:"phoneCount"`
	EmailCount    int    `json:"emailCount"`
	SyncedAt      string `json:"syncedAt"` // ISO 8601
}
