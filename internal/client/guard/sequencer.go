package guard

import "sync"

// Ticket は Sequencer.Begin が発行する世代番号です。
type Ticket uint64

// Sequencer は新しい遷移が始まった後に古い読み込み結果が画面状態を上書きしないようにします。
type Sequencer struct {
	mu      sync.Mutex
	current Ticket
}

// Begin は新しい遷移を開始し、それ以前のチケットを無効にします。
func (s *Sequencer) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	return s.current
}

// Current はそのチケットが最新であるかを返します。
func (s *Sequencer) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t == s.current
}

// Apply はチケットが最新の場合に限り fn を実行し、実行したかを返します。
// fn の実行中は Begin が待たされるため、適用と世代交代は競合しません。
func (s *Sequencer) Apply(t Ticket, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.current {
		return false
	}
	fn()
	return true
}
