package nlu

import (
	"alcyxob/workout-journal/internal/domain"
	"fmt"
	"strings"
)

const parseSystemPrompt = `You are a fitness assistant. Extract the workout described in the user's message (typed or transcribed speech, usually Russian) and answer with ONLY a JSON object, no markdown.

Rules:
1. Today is %s. Resolve relative dates ("today", "yesterday", "сегодня", "вчера") against it. Dates use YYYY-MM-DD.
2. Schema: {"date": string, "focus": one of legs|glutes|back|chest|shoulders|arms|core|fullbody|cardio|mixed, "exercises": [{"originalName": string, "mappedExerciseId": null, "isAmbiguous": bool, "sets": [{"weight": number|null, "reps": integer|null, "duration": number|null, "distance": number|null, "rpe": number|null}], "comments": [{"text": string}]}], "generalComments": [{"text": string}]}.
3. weight is in kg, duration in seconds, distance in km, rpe from 1 to 10.
4. "3x10 по 60" means three sets of 10 reps at 60 kg: emit three set objects.
5. Keep originalName exactly as the user said it. If the name is generic ("тяга", "жим") set isAmbiguous to true.
6. Notes about pain, mood or effort that do not fit rpe go into comments: on the exercise when they refer to it, otherwise into generalComments.

%s`

const editSystemPrompt = `You are a fitness assistant. The user wants to change a workout that is already recorded. Apply the requested change and answer with ONLY the complete updated workout as a JSON object, no markdown.

Rules:
1. Today is %s. Dates use YYYY-MM-DD.
2. Use the same schema as the current workout below, but exercises are {"originalName": string, "mappedExerciseId": string|null, "isAmbiguous": bool, "sets": [...], "comments": [{"text": string}]} and workout comments go into "generalComments": [{"text": string}].
3. Return EVERY exercise of the workout, including the ones the user did not mention. Omitting an exercise deletes it.
4. For exercises you keep, copy exerciseId into mappedExerciseId and name into originalName. New exercises get mappedExerciseId null.

Current workout:
%s`

const dateSystemPrompt = `You find the workout date in the user's message (usually Russian). Answer with ONLY a JSON object, no markdown.

Today is %s. Resolve relative phrases ("сегодня", "вчера", "позавчера", "в прошлый понедельник", "3 дня назад") against it.
Schema: {"date": "YYYY-MM-DD"}. If the message names no date, answer with today's date.`

func catalogHint(catalog []domain.ExerciseForNLU) string {
	if len(catalog) == 0 {
		return "No exercise catalog is available; just keep originalName as said."
	}
	var b strings.Builder
	b.WriteString("Known exercises (canonical name: display name):\n")
	for _, e := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", e.CanonicalName, e.DisplayName)
	}
	return b.String()
}

func buildParseMessages(text, currentDate string, catalog []domain.ExerciseForNLU) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: fmt.Sprintf(parseSystemPrompt, currentDate, catalogHint(catalog))},
		{Role: "user", Content: text},
	}
}

func buildEditMessages(text, currentDate, currentWorkoutJSON string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: fmt.Sprintf(editSystemPrompt, currentDate, currentWorkoutJSON)},
		{Role: "user", Content: text},
	}
}

func buildDateMessages(text, currentDate string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: fmt.Sprintf(dateSystemPrompt, currentDate)},
		{Role: "user", Content: text},
	}
}
