package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	AliyunOSS AliyunOSSConfig `mapstructure:"aliyun_oss"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Storage   StorageConfig   `mapstructure:"storageconfig"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"` // 用于拼接取件/重置密码链接
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// AliyunOSSConfig 阿里云OSS配置
type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// RabbitMQConfig RabbitMQ配置
type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey        string        `mapstructure:"secret_key"`
	ExpiresIn        time.Duration `mapstructure:"expires_in"`
	RefreshExpiresIn time.Duration `mapstructure:"refresh_expires_in"`
	Issuer           string        `mapstructure:"issuer"`
}

// SMTPConfig 邮件发送配置
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// StorageConfig 对象存储选型配置
type StorageConfig struct {
	Type               string `mapstructure:"type"`                 // minio / aliyun_oss
	PresignedURLExpiry int    `mapstructure:"presigned_url_expiry"` // 预签名URL有效期（分钟）
}

// QuotaConfig 配额配置
type QuotaConfig struct {
	DefaultTotalSpace uint64 `mapstructure:"default_total_space"` // 新用户默认配额（字节）
}

// SweeperConfig 过期清扫任务配置
type SweeperConfig struct {
	Interval  time.Duration `mapstructure:"interval"`   // 扫描周期
	BatchSize int           `mapstructure:"batch_size"` // 单轮最多处理的记录数
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

var AppConfig *Config // 全局应用配置实例

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")             // 配置文件名 (不带扩展名)
	viper.SetConfigType("yaml")               // 配置文件类型
	viper.AddConfigPath(".")                  // 在当前目录查找配置文件
	viper.AddConfigPath("./configs")          // 也可以添加其他路径
	viper.AddConfigPath("/etc/go-vaporshare/") // 生产环境常见路径

	// 读取环境变量，例如 VAPORSHARE_SERVER_PORT 对应 server.port
	viper.SetEnvPrefix("VAPORSHARE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (配置文件和环境变量都缺省时生效)
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("storageconfig.type", "minio")
	viper.SetDefault("storageconfig.presigned_url_expiry", 15)
	viper.SetDefault("quota.default_total_space", 100*1024*1024) // 每个用户默认 100MB
	viper.SetDefault("sweeper.interval", time.Hour)
	viper.SetDefault("sweeper.batch_size", 500)
	viper.SetDefault("jwt.expires_in", time.Hour)
	viper.SetDefault("jwt.refresh_expires_in", 7*24*time.Hour)
	viper.SetDefault("jwt.issuer", "go-vaporshare")
	viper.SetDefault("log.output_path", "logs/app.log")
	viper.SetDefault("log.error_path", "logs/error.log")
	viper.SetDefault("log.level", "info")

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 配置文件未找到不是致命错误，可以依赖环境变量和默认值
			log.Println("Warning: config file not found, using environment variables or default values.")
		} else {
			log.Fatalf("Fatal error reading config file: %s \n", err)
			return nil, err
		}
	}

	// 将读取到的配置绑定到结构体
	AppConfig = &Config{}
	if err := viper.Unmarshal(AppConfig); err != nil {
		log.Fatalf("Fatal error unmarshaling config: %s \n", err)
		return nil, err
	}

	log.Println("Configuration loaded successfully with Viper.")
	return AppConfig, nil
}
