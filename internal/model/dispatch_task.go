package model

// DispatchTask is the queue payload: one rendered message for one audience
// member. Immutable once produced; it exists only in flight, the durable
// record is the communications log row written by the consumer.
type DispatchTask struct {
	TaskID              string `json:"task_id"`
	CampaignID          int    `json:"campaign_id"`
	AudienceID          int    `json:"audience_id"`
	PersonalizedMessage string `json:"personalized_message"`
}
