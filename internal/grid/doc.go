// Package grid 实现每周任务排班表的乐观更新与对账引擎。
//
// 客户端没有和服务端的长连接，所以每个会话（Session）都在本地维护一份排班表副本：
// 用户的操作先同步地作用到本地（乐观更新），随后再异步地发给服务端确认；
// 服务端拒绝时回滚本地修改。另外 Poller 会按固定间隔拉取服务端的最新数据，
// 并在格子集合发生变化时整体替换本地副本，从而感知其他用户的修改。
//
// 一个 Session 对应一个打开的排班表（一周），切换周时由 Workspace 关闭旧会话、
// 打开新会话。Session 内部的 Store、History 和 DeletedKeys 都不是并发安全的，
// 所有访问都必须在 Session 的锁内进行。
package grid
