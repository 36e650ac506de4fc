package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT 配置（合并通知，默认禁用）
type MQTTConfig struct {
	Enabled  bool
	Broker   string // 如 "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	Topic    string // 通知主题前缀，实际发布到 <Topic>/<floor_plan_id>
	QoS      byte
}

// AuthorityConfig head editor 权限查询
type AuthorityConfig struct {
	Mode    string // "local"（查 editors 表）或 "remote"（调用用户服务）
	URL     string
	Timeout time.Duration
}

// MergeConfig 合并流程配置
type MergeConfig struct {
	LockTTL     time.Duration // 每个平面图的合并锁过期时间
	LockWait    time.Duration // 获取锁的最长等待时间
	EventStream string        // 合并事件写入的 Redis Stream
	// AutoInterval 后台自动合并轮询间隔，0 表示关闭
	AutoInterval     time.Duration
	AnalysisCacheTTL time.Duration // 冲突分析结果缓存时间，0 表示不缓存
}

// Config wisefido-floorplan 配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled    bool
	Database     DatabaseConfig
	RedisEnabled bool
	Redis        RedisConfig
	MQTT         MQTTConfig
	Authority    AuthorityConfig
	Merge        MergeConfig
	Log          struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB 不可用时回退到内存存储
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "floorplan")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-floorplan")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "floorplan/merges")
	qos := parseInt(getEnv("MQTT_QOS", "1"), 1)
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("invalid MQTT_QOS %d: must be 0, 1 or 2", qos)
	}
	cfg.MQTT.QoS = byte(qos)

	cfg.Authority.Mode = getEnv("AUTHORITY_MODE", "local")
	cfg.Authority.URL = getEnv("AUTHORITY_URL", "http://localhost:8081")
	cfg.Authority.Timeout = parseDuration(getEnv("AUTHORITY_TIMEOUT", "5s"), 5*time.Second)
	if cfg.Authority.Mode != "local" && cfg.Authority.Mode != "remote" {
		return nil, fmt.Errorf("unsupported AUTHORITY_MODE: %s", cfg.Authority.Mode)
	}

	cfg.Merge.LockTTL = parseDuration(getEnv("MERGE_LOCK_TTL", "30s"), 30*time.Second)
	cfg.Merge.LockWait = parseDuration(getEnv("MERGE_LOCK_WAIT", "5s"), 5*time.Second)
	cfg.Merge.EventStream = getEnv("MERGE_EVENT_STREAM", "floorplan:merge-events")
	cfg.Merge.AutoInterval = parseDuration(getEnv("MERGE_AUTO_INTERVAL", "0"), 0)
	cfg.Merge.AnalysisCacheTTL = parseDuration(getEnv("ANALYSIS_CACHE_TTL", "60s"), 60*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDuration 支持 "30s" 这种写法，也兼容纯数字（按秒）
func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 {
		return time.Duration(i) * time.Second
	}
	return def
}
