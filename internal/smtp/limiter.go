package smtp

import (
	"golang.org/x/time/rate"
)

// DeliveryLimiter 投递限流器。令牌桶由 golang.org/x/time/rate 实现，
// 限制单位时间内进入解析管线的投递次数。
type DeliveryLimiter struct {
	limiter *rate.Limiter
}

// NewDeliveryLimiter 创建投递限流器
//
// 参数:
//   - perSecond: 每秒允许的投递次数，<= 0 表示不限流
//   - burst: 突发容量
func NewDeliveryLimiter(perSecond float64, burst int) *DeliveryLimiter {
	if perSecond <= 0 {
		return &DeliveryLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &DeliveryLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow 报告当前是否允许一次投递
func (l *DeliveryLimiter) Allow() bool {
	return l.limiter.Allow()
}
