package domain

import "time"

// Flow — семейство сценариев администратора.
type Flow string

const (
	FlowAddPaginated      Flow = "add_movie_parts"
	FlowAddPaginatedNamed Flow = "add_movie_parts_named"
	FlowAddSimple         Flow = "add_simple_movie"
	FlowAddPart           Flow = "add_new_part"
	FlowDeleteItem        Flow = "delete_movie"
	FlowAddChannel        Flow = "add_channel"
	FlowRemoveChannel     Flow = "remove_channel"
	FlowBroadcast         Flow = "broadcast"
	FlowChannelPost       Flow = "post_to_channel"
)

// Flows перечисляет точки входа в порядке админ-меню.
var Flows = []Flow{
	FlowAddPaginated,
	FlowAddPaginatedNamed,
	FlowAddSimple,
	FlowAddChannel,
	FlowRemoveChannel,
	FlowDeleteItem,
	FlowAddPart,
	FlowChannelPost,
	FlowBroadcast,
}

// ParseFlow распознаёт точку входа по действию кнопки.
func ParseFlow(action string) (Flow, bool) {
	for _, flow := range Flows {
		if string(flow) == action {
			return flow, true
		}
	}
	return "", false
}

// Step — текущий шаг сценария.
type Step string

const (
	StepDone Step = ""

	StepPaginatedTitle    Step = "paginated.title"
	StepPaginatedCount    Step = "paginated.count"
	StepPaginatedPartName Step = "paginated.part_name"
	StepPaginatedPartURL  Step = "paginated.part_url"
	StepPaginatedNumber   Step = "paginated.number"

	StepSimpleTitle  Step = "simple.title"
	StepSimpleURL    Step = "simple.url"
	StepSimpleNumber Step = "simple.number"

	StepNewPartSelect Step = "new_part.select"
	StepNewPartName   Step = "new_part.name"
	StepNewPartURL    Step = "new_part.url"

	StepDeleteSelect Step = "delete.select"

	StepChannelKind  Step = "channel_add.kind"
	StepChannelValue Step = "channel_add.value"

	StepChannelRemoveSelect  Step = "channel_remove.select"
	StepChannelRemoveConfirm Step = "channel_remove.confirm"

	StepBroadcastText Step = "broadcast.text"

	StepPostChannel     Step = "post.channel"
	StepPostKind        Step = "post.kind"
	StepPostText        Step = "post.text"
	StepPostMedia       Step = "post.media"
	StepPostButtonLabel Step = "post.button_label"
	StepPostButtonURL   Step = "post.button_url"
)

// Workflow хранит состояние незавершённого сценария.
type Workflow struct {
	Flow   Flow              `json:"flow"`
	Step   Step              `json:"step"`
	Fields map[string]string `json:"fields,omitempty"`
	Parts  []Part            `json:"parts,omitempty"`
}

// Delivery хранит состояние листания серий.
type Delivery struct {
	Number   string     `json:"number"`
	Page     int        `json:"page"`
	Selected int        `json:"selected"`
	Controls MessageRef `json:"controls"`
}

// Session — эфемерное состояние пользователя: сценарий и/или выдача серий.
type Session struct {
	UserID    int64     `json:"user_id"`
	Workflow  *Workflow `json:"workflow,omitempty"`
	Delivery  *Delivery `json:"delivery,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty сообщает, что в сессии нечего хранить.
func (s Session) Empty() bool {
	return s.Workflow == nil && s.Delivery == nil
}
