package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// SMTPConfig 定义 SMTP 邮件接收服务器的配置
type SMTPConfig struct {
	BindAddr        string        // SMTP 服务监听地址，格式 "host:port"，默认 ":25"
	Domain          string        // SMTP 服务器域名，用于 HELO/EHLO 响应
	MaxMessageBytes int64         // 单封邮件最大字节数，默认 10MB
	MaxRecipients   int           // 单封邮件最大收件人数量，默认 50
	ReadTimeout     time.Duration // 连接读超时，默认 1 分钟
	WriteTimeout    time.Duration // 连接写超时，默认 1 分钟
	RatePerSecond   float64       // 每秒允许的投递次数，0 表示不限流
	RateBurst       int           // 限流突发容量
}

// StorageConfig 定义附件文件存储配置
type StorageConfig struct {
	AttachmentDir string // 附件落盘目录，默认 "./data/attachments"
}

// RetentionConfig 定义邮件保留与清理策略
type RetentionConfig struct {
	MaxAge        time.Duration // 邮件最长保留时间，默认 720h（30 天）
	SweepInterval time.Duration // 清理任务运行间隔，默认 24h
	SweepWorkers  int           // 清理附件时的并发 worker 数，默认 4
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到 stdout
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置（可选，用于创建邮箱限频）
type RedisConfig struct {
	Enabled  bool   // 是否启用 Redis
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
	MaxPerIP int    // 单个 IP 每小时最多可创建的邮箱数量，默认 10
}

// JWTConfig 定义读取令牌的签发配置（可选功能）
type JWTConfig struct {
	Secret string        // 签名密钥，留空则禁用令牌端点；非空时必须至少 32 字符
	Issuer string        // 签发者标识，默认 "dropmail"
	Expiry time.Duration // 令牌有效期，默认 1 小时
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	SMTP      SMTPConfig      // SMTP 服务配置
	Storage   StorageConfig   // 附件存储配置
	Retention RetentionConfig // 保留与清理配置
	CORS      CORSConfig      // 跨域配置
	Log       LogConfig       // 日志配置
	Database  DatabaseConfig  // 数据库配置
	Redis     RedisConfig     // Redis 配置
	JWT       JWTConfig       // 读取令牌配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//   1. 系统环境变量（最高优先级）
//   2. .env 文件（如果存在）
//   3. 默认值
//
// 环境变量前缀: DROPMAIL_
// 例如: DROPMAIL_SERVER_PORT, DROPMAIL_RETENTION_MAX_AGE
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 配置验证失败时返回错误
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("dropmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("smtp.bind_addr", ":25")
	viper.SetDefault("smtp.domain", "drop.mail")
	viper.SetDefault("smtp.max_message_bytes", 10*1024*1024)
	viper.SetDefault("smtp.max_recipients", 50)
	viper.SetDefault("smtp.read_timeout", "1m")
	viper.SetDefault("smtp.write_timeout", "1m")
	viper.SetDefault("smtp.rate_per_second", 10.0)
	viper.SetDefault("smtp.rate_burst", 20)
	viper.SetDefault("storage.attachment_dir", "./data/attachments")
	viper.SetDefault("retention.max_age", "720h")
	viper.SetDefault("retention.sweep_interval", "24h")
	viper.SetDefault("retention.sweep_workers", 4)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_per_ip", 10)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.issuer", "dropmail")
	viper.SetDefault("jwt.expiry", "1h")

	maxAge, err := time.ParseDuration(viper.GetString("retention.max_age"))
	if err != nil {
		return nil, fmt.Errorf("invalid retention.max_age: %w", err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention.max_age must be positive")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("retention.sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid retention.sweep_interval: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("retention.sweep_interval must be positive")
	}

	sweepWorkers := viper.GetInt("retention.sweep_workers")
	if sweepWorkers <= 0 {
		sweepWorkers = 4
	}

	readTimeout, err := time.ParseDuration(viper.GetString("smtp.read_timeout"))
	if err != nil {
		readTimeout = time.Minute
	}
	writeTimeout, err := time.ParseDuration(viper.GetString("smtp.write_timeout"))
	if err != nil {
		writeTimeout = time.Minute
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	jwtExpiry, err := time.ParseDuration(viper.GetString("jwt.expiry"))
	if err != nil {
		jwtExpiry = time.Hour
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：一旦启用令牌端点，secret 不允许过短
	if jwtSecret != "" && len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	attachmentDir := viper.GetString("storage.attachment_dir")
	if attachmentDir == "" {
		return nil, fmt.Errorf("storage.attachment_dir must not be empty")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		SMTP: SMTPConfig{
			BindAddr:        viper.GetString("smtp.bind_addr"),
			Domain:          strings.ToLower(viper.GetString("smtp.domain")),
			MaxMessageBytes: viper.GetInt64("smtp.max_message_bytes"),
			MaxRecipients:   viper.GetInt("smtp.max_recipients"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			RatePerSecond:   viper.GetFloat64("smtp.rate_per_second"),
			RateBurst:       viper.GetInt("smtp.rate_burst"),
		},
		Storage: StorageConfig{
			AttachmentDir: attachmentDir,
		},
		Retention: RetentionConfig{
			MaxAge:        maxAge,
			SweepInterval: sweepInterval,
			SweepWorkers:  sweepWorkers,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			MaxPerIP: viper.GetInt("redis.max_per_ip"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
			Issuer: viper.GetString("jwt.issuer"),
			Expiry: jwtExpiry,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//   1. 当前目录的 .env
//   2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	// 尝试当前目录的 .env
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	// 尝试父目录的 .env（从 backend/ 目录运行时）
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
