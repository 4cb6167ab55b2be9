package run

import (
	"time"

	"github.com/John-Robertt/cinemas/internal/config"
	"github.com/John-Robertt/cinemas/internal/domain"
)

// Observer 把“运行进度/阶段/单条结果”从核心流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（stdout 只留给最终结果）
// - 事件都在调用 Execute 的 goroutine 上发出
type Observer interface {
	// OnStart 在 Execute 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（schedule/filter/ratings/rank）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnWait 在下一次评分查询需要等待限速间隔时调用（wait>0 才会调用）。
	OnWait(title string, wait time.Duration)
	// OnRatingDone 在某个片名查询完成时调用。
	OnRatingDone(idx, total int, rec domain.MovieRecord, dur time.Duration)
}
