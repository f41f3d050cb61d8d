package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// SessionModulePrefix 会话模块
	SessionModulePrefix = "session"
	// ATSModulePrefix ATS 评分模块
	ATSModulePrefix = "ats"

	// EntityData 数据实体
	EntityData = "data"
	// EntityScore 评分实体
	EntityScore = "score"

	// KeySessionData 会话数据 (STRING, JSON)
	// 格式: app:session:data:{sessionID}
	KeySessionData = AppPrefix + ":" + SessionModulePrefix + ":" + EntityData + ":%s"

	// KeyATSScore ATS 评分缓存 (STRING, JSON)
	// 格式: app:ats:score:{role}:{textMD5}
	KeyATSScore = AppPrefix + ":" + ATSModulePrefix + ":" + EntityScore + ":%s:%s"
)

const (
	// OutboxModulePrefix outbox 模块
	OutboxModulePrefix = "outbox"

	// KeyOutboxRelayLock outbox 中继分布式锁 (STRING)
	// 格式: app:outbox:lock:relay
	KeyOutboxRelayLock = AppPrefix + ":" + OutboxModulePrefix + ":lock:relay"
)
