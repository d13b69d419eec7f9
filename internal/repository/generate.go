package repository

import (
	"fmt"
	"os"

	"gorm.io/gen"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/storage/database"
)

// ========== Activity 相关查询接口 ==========

// ActivityQuerier 活动查询接口
type ActivityQuerier interface {
	// GetByPublicID 根据对外 ID 查询活动
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID string) (*gen.T, error)

	// GetMostRecentByPhone 查询某手机号最近创建的活动
	//
	// SELECT * FROM @@table
	// WHERE phone_number = @phone
	// ORDER BY created_at DESC
	// LIMIT 1
	GetMostRecentByPhone(phone string) (*gen.T, error)

	// ListOverdueActive 查询已过期但仍为 active 的活动（补偿扫描用）
	//
	// SELECT * FROM @@table
	// WHERE status = 'active'
	//   AND next_check_in_deadline < NOW() - make_interval(mins => @graceMinutes)
	// ORDER BY next_check_in_deadline ASC
	// LIMIT @limit
	ListOverdueActive(graceMinutes int, limit int) ([]*gen.T, error)

	// CountByStatus 统计各状态的活动数量
	//
	// SELECT status, COUNT(*) as count
	// FROM @@table
	// GROUP BY status
	CountByStatus() ([]gen.M, error)
}

// ========== CheckIn 相关查询接口 ==========

// CheckInQuerier 报平安记录查询接口
type CheckInQuerier interface {
	// ListByActivityID 按活动查询报平安记录
	//
	// SELECT * FROM @@table
	// WHERE activity_id = @activityID
	// ORDER BY created_at DESC
	// LIMIT @limit
	ListByActivityID(activityID int64, limit int) ([]*gen.T, error)
}

func Generate() error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 运行数据库迁移（确保表存在）
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migration: %w", err)
	}

	db := database.DB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./internal/repository/query", // 生成代码的输出路径
		ModelPkgPath:      "github.com/sapplex-sz/save-me-app/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true,
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	// 注册现有的 model，GORM Gen 会使用这些 model 而不是生成新的
	g.ApplyBasic(
		&model.User{},
		&model.Activity{},
		&model.CheckIn{},
		&model.EmailSender{},
		&model.Setting{},
	)

	g.ApplyInterface(func(ActivityQuerier) {}, &model.Activity{})
	g.ApplyInterface(func(CheckInQuerier) {}, &model.CheckIn{})

	g.Execute()

	return nil
}

func RunGenerate() {
	if err := Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate code: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Code generation completed successfully!")
}
