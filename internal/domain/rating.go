package domain

// Rating 是评分站点对某个片名的查询结果。
// 零值（0.0, "0"）表示未找到评分，而不是错误。
type Rating struct {
	Value float64
	Votes string
}

// NoRating 是未找到评分时的默认结果。
var NoRating = Rating{Value: 0, Votes: "0"}
