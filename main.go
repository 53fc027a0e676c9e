// @title English Virtual Lab API
// @version 1.0
// @description 英语学习平台后端：内容目录、学习进度与语法测验。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"english_virtual_lab/internal/app"
	"english_virtual_lab/internal/config"
	"english_virtual_lab/pkg/logger"
	"log"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	// 命令行参数
	configDir := pflag.String("config", "configs", "配置文件目录（包含 config.yaml）")
	migrateOnly := pflag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := pflag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	application.ConfigDir = *configDir
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Close(ctx)
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
