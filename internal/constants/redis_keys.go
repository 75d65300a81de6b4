package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityStage 流水线阶段实体
	EntityStage = "stage"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToUUID MD5到UUID的映射实体
	EntityMD5ToUUID = "md5_to_uuid"

	// KeyPipelineStage 流水线阶段缓存 (STRING)，供状态查询接口轮询
	// 格式: app:resume:stage:{submissionUUID}
	KeyPipelineStage = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityStage + ":%s"

	// KeyFileMD5Set 文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToSubmissionUUID MD5到SubmissionUUID的映射 (STRING)
	// 格式: app:file:md5_to_uuid:{md5}
	KeyFileMD5ToSubmissionUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToUUID + ":%s"

	// KeyParsedTextMD5Set 解析文本MD5集合 (SET)，用于解析后的内容级去重
	// 格式: app:resume:dedup_set
	KeyParsedTextMD5Set = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityDedupSet

	// KeyProcessingLock 解析工作者的分布式锁 (STRING)，防止同一提交被并发处理
	// 格式: lock:resume:{submissionUUID}
	KeyProcessingLock = "lock:" + ResumeModulePrefix + ":%s"
)
