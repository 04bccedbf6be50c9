// Package xconf 基于 koanf 的配置加载与热更新。
//
// # 加载
//
// [New] 按扩展名（.yaml/.yml/.json）识别格式并加载文件，
// [NewFromBytes] 从内存数据加载（如嵌入的默认配置、ConfigMap 内容）。
// [Config.Unmarshal] 解码到预先填好默认值的结构体：配置中缺失的键保留默认值。
//
//	cfg := server.DefaultConfig()
//	c, err := xconf.New("/etc/xwebd/xwebd.yaml")
//	if err != nil {
//		return err
//	}
//	if err := c.Unmarshal("", &cfg); err != nil {
//		return err
//	}
//
// # 热更新
//
// [Watch] 通过 fsnotify 监视配置文件所在目录，变更经防抖后调用 Reload
// 并回调通知。[Watcher.Run] 阻塞直到 ctx 取消，可直接作为 xrun 服务运行。
//
// 设计决策: 监视目录而非文件本身，编辑器的"写临时文件再 rename"
// 和 ConfigMap 的符号链接切换都会替换文件 inode，直接监视文件会丢失后续事件。
package xconf
