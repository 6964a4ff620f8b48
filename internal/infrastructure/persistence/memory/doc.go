// Package memory 内存版仓储实现
//
// 用于 storage.driver=memory（本地开发、演示）和用例测试。
// 与MySQL实现保持相同的语义：订单按版本号条件更新，库存按条件增量更新，
// 读出的实体都是副本，调用方修改不会影响存储。
package memory
