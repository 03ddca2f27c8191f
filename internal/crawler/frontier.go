package crawler

import "strings"

// Frontier 广度优先爬取边界
// 待处理队列与已处理集合互斥，同一地址不会被处理两次
type Frontier struct {
	pending    []string
	pendingSet map[string]struct{}
	processed  map[string]struct{}
}

// NewFrontier 创建爬取边界
func NewFrontier() *Frontier {
	return &Frontier{
		pendingSet: make(map[string]struct{}),
		processed:  make(map[string]struct{}),
	}
}

func normalize(address string) string {
	return strings.ToLower(address)
}

// Push 将地址加入待处理队列，已入队或已处理的地址被忽略
func (f *Frontier) Push(address string) bool {
	key := normalize(address)
	if _, ok := f.pendingSet[key]; ok {
		return false
	}
	if _, ok := f.processed[key]; ok {
		return false
	}
	f.pendingSet[key] = struct{}{}
	f.pending = append(f.pending, address)
	return true
}

// Pop 取出队首地址，队列为空时返回false
func (f *Frontier) Pop() (string, bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	address := f.pending[0]
	f.pending = f.pending[1:]
	delete(f.pendingSet, normalize(address))
	return address, true
}

// MarkProcessed 将地址标记为已处理
func (f *Frontier) MarkProcessed(address string) {
	f.processed[normalize(address)] = struct{}{}
}

// IsProcessed 判断地址是否已处理
func (f *Frontier) IsProcessed(address string) bool {
	_, ok := f.processed[normalize(address)]
	return ok
}

// PendingCount 待处理地址数量
func (f *Frontier) PendingCount() int {
	return len(f.pending)
}

// ProcessedCount 已处理地址数量
func (f *Frontier) ProcessedCount() int {
	return len(f.processed)
}
