package dto

type ListSubmissionsRequest struct {
	Limit  int    `validate:"gte=1,lte=100"`
	Offset int    `validate:"gte=0"`
	Scope  string `validate:"oneof=session all"`
}

type ArchivedPredictionsRequest struct {
	ID string `validate:"required,uuid"`
}
