package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/apexcrm/campaign-manager/internal/model"
)

// RenderMessage substitutes the first occurrence of each supported
// placeholder. Unknown placeholders pass through untouched.
func RenderMessage(template string, member model.AudienceMember) string {
	msg := strings.Replace(template, "{{name}}", member.Name, 1)
	msg = strings.Replace(msg, "{{email}}", member.Email, 1)
	return msg
}

// EncodeTasks turns a campaign's audience into dispatch tasks, one per
// member. Pure transform: no drops, no duplicates, no side effects.
func EncodeTasks(campaignID int, members []model.AudienceMember, template string) []model.DispatchTask {
	tasks := make([]model.DispatchTask, 0, len(members))
	for _, m := range members {
		tasks = append(tasks, model.DispatchTask{
			TaskID:              uuid.NewString(),
			CampaignID:          campaignID,
			AudienceID:          m.ID,
			PersonalizedMessage: RenderMessage(template, m),
		})
	}
	return tasks
}
