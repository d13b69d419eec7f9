package model

// CheckIn 一次报平安的位置采样，只追加不修改
type CheckIn struct {
	BaseModel
	ActivityID   int64    `gorm:"not null;index:idx_check_ins_activity" json:"activity_id"`
	Latitude     float64  `gorm:"type:float8;not null" json:"latitude"`
	Longitude    float64  `gorm:"type:float8;not null" json:"longitude"`
	BatteryLevel *int     `gorm:"type:int" json:"battery_level,omitempty"`
	Activity     Activity `gorm:"foreignKey:ActivityID" json:"-"`
}

// TableName 指定表名
func (CheckIn) TableName() string {
	return "check_ins"
}
