package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig 串口参数。波特率与数据位固定，通常只需指定端口。
type SerialConfig struct {
	Port           string        `mapstructure:"port"`
	Baud           int           `mapstructure:"baud"`
	StabilizeDelay time.Duration `mapstructure:"stabilizeDelay"`
}

// LinkConfig 命令调度参数
type LinkConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
}

// SafetyConfig 安全策略开关
type SafetyConfig struct {
	AllowUnstable     bool          `mapstructure:"allowUnstable"`
	UnstableInterval  time.Duration `mapstructure:"unstableInterval"`
	AllowDigitalWrite bool          `mapstructure:"allowDigitalWrite"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Link    LinkConfig    `mapstructure:"link"`
	Safety  SafetyConfig  `mapstructure:"safety"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Load 从 YAML 文件与环境变量加载配置。
// path 为空时回退到 ./configs/example.yaml；环境变量前缀 PMR171_。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("PMR171")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许无配置文件运行，依赖默认值与环境变量；显式指定的文件缺失仍然报错
		var notFound viper.ConfigFileNotFoundError
		if path != "" || fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// 空默认值让 AutomaticEnv 能在 Unmarshal 时命中该键
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.stabilizeDelay", "500ms")

	v.SetDefault("link.timeout", "1s")
	v.SetDefault("link.maxAttempts", 3)

	v.SetDefault("safety.allowUnstable", false)
	v.SetDefault("safety.unstableInterval", "5s")
	v.SetDefault("safety.allowDigitalWrite", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9171")
	v.SetDefault("metrics.path", "/metrics")
}
