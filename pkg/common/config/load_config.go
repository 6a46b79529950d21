/*
 * 配置加载模块
 *
 * 基于Viper读取YAML配置文件，并允许环境变量覆盖文件中的值。
 *
 * 特性：
 * - 环境变量前缀：由配置文件名生成，见EnvPrefix
 * - 标签支持：使用mapstructure标签进行字段映射
 * - 加载后使用validator校验取值范围
 */
package config

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/openimsdk/tools/errs"
	"github.com/spf13/viper"
)

// LoadConfig 加载配置文件
//
// 使用Viper读取配置文件并映射到config指向的结构体，环境变量可以覆盖文件中的值。
//
// 环境变量规则：
// - 使用指定的前缀（envPrefix）
// - 点号（.）会被替换为下划线（_）
// - 自动转换为大写
// - 例如：prefix.database.host -> PREFIX_DATABASE_HOST
//
// 参数说明：
// - path: 配置文件的完整路径
// - envPrefix: 环境变量前缀，用于区分不同服务的环境变量
// - config: 目标配置结构体的指针，用于接收解析后的配置数据
//
// 返回值：
// - error: 配置加载过程中的错误信息，nil表示成功
//
// 使用示例：
//
//	type Config struct {
//	    Database struct {
//	        Host string `mapstructure:"host"`
//	        Port int    `mapstructure:"port"`
//	    } `mapstructure:"database"`
//	}
//
//	var cfg Config
//	err := LoadConfig("/path/to/localcache.yml", "MYAPP", &cfg)
//
// 环境变量示例：
//
//	MYAPP_DATABASE_HOST=localhost
//	MYAPP_DATABASE_PORT=3306
//
// 注意事项：
// - config参数必须是指针类型
// - 只有配置文件中出现过的键才能被环境变量覆盖
func LoadConfig(path string, envPrefix string, config any) error {
	// 创建新的Viper实例，避免全局状态污染
	v := viper.New()

	// 设置配置文件路径
	// Viper会根据文件扩展名自动识别配置文件格式
	v.SetConfigFile(path)

	// 设置环境变量前缀
	// 所有相关的环境变量都应该以此前缀开头
	v.SetEnvPrefix(envPrefix)

	// 启用自动环境变量读取
	// Viper会自动查找匹配的环境变量
	v.AutomaticEnv()

	// 设置环境变量键名替换规则
	// 将配置键中的点号（.）替换为下划线（_）以匹配环境变量命名规范
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 读取配置文件内容
	if err := v.ReadInConfig(); err != nil {
		return errs.WrapMsg(err, "failed to read config file", "path", path, "envPrefix", envPrefix)
	}

	// 将配置数据映射到目标结构体
	// 使用mapstructure进行结构体字段映射
	if err := v.Unmarshal(config, func(config *mapstructure.DecoderConfig) {
		// 指定使用mapstructure标签进行字段映射
		config.TagName = "mapstructure"
	}); err != nil {
		return errs.WrapMsg(err, "failed to unmarshal config", "path", path, "envPrefix", envPrefix)
	}

	return nil
}

// Load 从configFolderPath目录加载localcache.yml并校验
// 目录中不存在配置文件时，回退到项目根目录下的config目录
func Load(configFolderPath string) (*Config, error) {
	path, err := resolvePath(configFolderPath, FileName)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := LoadConfig(path, EnvPrefix(FileName), &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
